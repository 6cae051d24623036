package action

import (
	"fmt"

	"github.com/cloudwego/eino/schema"
)

// ToolInfos exports every registered action as an eino tool definition so an
// agent runtime can bind them to a tool-calling chat model.
func (r *Registry) ToolInfos() []*schema.ToolInfo {
	descriptors := r.Descriptors()
	out := make([]*schema.ToolInfo, 0, len(descriptors))
	for _, d := range descriptors {
		out = append(out, ToolInfo(d))
	}
	return out
}

func ToolInfo(d Descriptor) *schema.ToolInfo {
	params := make(map[string]*schema.ParameterInfo, len(d.Arguments))
	for _, spec := range d.Arguments {
		desc := spec.Description
		if spec.Type == ArgString && spec.MinLength > 0 {
			desc = fmt.Sprintf("%s (at least %d characters)", desc, spec.MinLength)
		}
		param := &schema.ParameterInfo{
			Type:     dataType(spec.Type),
			Desc:     desc,
			Required: spec.Required,
		}
		if spec.Type == ArgArray {
			param.ElemInfo = &schema.ParameterInfo{Type: schema.Object}
		}
		params[spec.Name] = param
	}

	info := &schema.ToolInfo{
		Name: d.Name,
		Desc: d.Description,
	}
	if len(params) > 0 {
		info.ParamsOneOf = schema.NewParamsOneOfByParams(params)
	}
	return info
}

func dataType(t ArgType) schema.DataType {
	switch t {
	case ArgNumber:
		return schema.Number
	case ArgBoolean:
		return schema.Boolean
	case ArgObject:
		return schema.Object
	case ArgArray:
		return schema.Array
	default:
		return schema.String
	}
}
