package composer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
	deckx "github.com/tanpawarit/slide-copilot/agent/deck"
)

type fakeToolCallingModel struct {
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
}

func (f *fakeToolCallingModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeToolCallingModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func (f *fakeToolCallingModel) WithTools(tools []*schema.ToolInfo) (einomodel.ToolCallingChatModel, error) {
	return f, nil
}

func composeRequest() contractx.ComposeRequest {
	return contractx.ComposeRequest{
		Topic:        "quantum computing",
		Research:     "Qubits can hold superpositions. Error correction is the main obstacle.",
		Presentation: []deckx.Slide{deckx.DefaultSeed()},
	}
}

func TestComposeSuccess(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Content: `{"title":" Why qubits matter ","content":"- Superposition\n- Error correction","backgroundImageDescription":"glowing chip","spokenNarration":"Let's look at qubits."}`},
		},
	}

	c, err := NewLLMComposer(context.Background(), fake, "compose prompt")
	if err != nil {
		t.Fatalf("NewLLMComposer() error = %v", err)
	}

	slide, err := c.Compose(context.Background(), composeRequest())
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	if slide.Title != "Why qubits matter" {
		t.Fatalf("unexpected title: %q", slide.Title)
	}
	if slide.BackgroundImageDescription != "glowing chip" {
		t.Fatalf("unexpected background: %q", slide.BackgroundImageDescription)
	}

	if len(fake.inputs) != 1 || len(fake.inputs[0]) != 2 {
		t.Fatalf("expected system+user messages, got %#v", fake.inputs)
	}
	if fake.inputs[0][0].Content != "compose prompt" {
		t.Fatalf("unexpected system message: %q", fake.inputs[0][0].Content)
	}
	var payload contractx.ComposeRequest
	if err := json.Unmarshal([]byte(fake.inputs[0][1].Content), &payload); err != nil {
		t.Fatalf("user message is not the JSON request: %v", err)
	}
	if payload.Topic != "quantum computing" || len(payload.Presentation) != 1 {
		t.Fatalf("unexpected payload: %#v", payload)
	}
}

func TestComposeSchemaFailure(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{
		responses: []*schema.Message{
			{Content: `{"title":"","content":"body"}`},
		},
	}

	c, err := NewLLMComposer(context.Background(), fake, "compose prompt")
	if err != nil {
		t.Fatalf("NewLLMComposer() error = %v", err)
	}
	if _, err := c.Compose(context.Background(), composeRequest()); !errors.Is(err, contractx.ErrSchemaViolation) {
		t.Fatalf("expected ErrSchemaViolation, got %v", err)
	}
}

func TestComposeRejectsVerbatimResearch(t *testing.T) {
	t.Parallel()

	req := composeRequest()
	body, _ := json.Marshal(map[string]string{"title": "Qubits", "content": req.Research})
	fake := &fakeToolCallingModel{responses: []*schema.Message{{Content: string(body)}}}

	c, err := NewLLMComposer(context.Background(), fake, "compose prompt")
	if err != nil {
		t.Fatalf("NewLLMComposer() error = %v", err)
	}
	_, err = c.Compose(context.Background(), req)
	if !errors.Is(err, contractx.ErrSchemaViolation) || !strings.Contains(err.Error(), "verbatim") {
		t.Fatalf("expected verbatim schema violation, got %v", err)
	}
}

func TestComposeModelError(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{err: errors.New("boom")}
	c, err := NewLLMComposer(context.Background(), fake, "compose prompt")
	if err != nil {
		t.Fatalf("NewLLMComposer() error = %v", err)
	}
	if _, err := c.Compose(context.Background(), composeRequest()); !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("expected ErrModelInvoke, got %v", err)
	}
}

func TestComposeValidatesRequest(t *testing.T) {
	t.Parallel()

	fake := &fakeToolCallingModel{}
	c, err := NewLLMComposer(context.Background(), fake, "compose prompt")
	if err != nil {
		t.Fatalf("NewLLMComposer() error = %v", err)
	}

	req := composeRequest()
	req.Research = "  "
	if _, err := c.Compose(context.Background(), req); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(fake.inputs) != 0 {
		t.Fatal("model must not be called for an invalid request")
	}
}
