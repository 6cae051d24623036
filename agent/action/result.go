package action

import (
	"errors"

	contractx "github.com/tanpawarit/slide-copilot/agent/contract"
)

// ResultOf folds an invocation outcome into the structure returned to the agent runtime.
func ResultOf(name string, out any, err error) contractx.ActionResult {
	res := contractx.ActionResult{Name: name}
	if err == nil {
		res.Result = out
		return res
	}

	res.Error = err.Error()
	var verr *ValidationError
	if errors.As(err, &verr) {
		res.Problems = make([]string, 0, len(verr.Problems))
		for _, p := range verr.Problems {
			res.Problems = append(res.Problems, p.String())
		}
	}
	return res
}
