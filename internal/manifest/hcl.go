package manifest

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/dotmod/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// rootSchema is the top-level structure of an HCL manifest.
type rootSchema struct {
	Description string      `hcl:"description,optional"`
	Functions   []*hclBlock `hcl:"function,block"`
	Aliases     []*hclBlock `hcl:"alias,block"`
}

// hclBlock is a labelled block whose body is decoded in a second pass.
type hclBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

var functionBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "description"},
		{Name: "handler"},
		{Name: "script"},
		{Name: "args"},
	},
}

var aliasBodySchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "command", Required: true},
		{Name: "description"},
	},
}

// EvalContext exposes the process environment to manifest expressions as
// the `env` object, e.g. "${env.HOME}/src".
func EvalContext() *hcl.EvalContext {
	vars := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			continue
		}
		vars[key] = cty.StringVal(value)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(vars),
		},
	}
}

// ParseHCL decodes an HCL manifest. All diagnostics are collected before
// returning so a single run reports every problem in the file.
func ParseHCL(ctx context.Context, src []byte, path string) (*Manifest, error) {
	logger := ctxlog.FromContext(ctx)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, path)
	if diags.HasErrors() {
		return nil, &ParseError{Path: path, Err: diags}
	}

	evalCtx := EvalContext()
	root := &rootSchema{}
	allDiags := gohcl.DecodeBody(file.Body, evalCtx, root)
	if allDiags.HasErrors() {
		return nil, &ParseError{Path: path, Err: allDiags}
	}

	m := &Manifest{
		Format:      FormatHCL,
		Description: strings.TrimSpace(root.Description),
	}

	seen := make(map[string]string)
	declare := func(kind, name string) {
		if prev, ok := seen[name]; ok {
			allDiags = append(allDiags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Duplicate command name",
				Detail:   fmt.Sprintf("%s %q is already declared as a %s in this file.", kind, name, prev),
			})
			return
		}
		seen[name] = kind
	}

	for _, block := range root.Functions {
		declare("function", block.Name)
		fn, diags := decodeFunction(block, evalCtx)
		allDiags = append(allDiags, diags...)
		if fn != nil {
			m.Functions = append(m.Functions, *fn)
		}
	}

	for _, block := range root.Aliases {
		declare("alias", block.Name)
		sc, diags := decodeAlias(block, evalCtx)
		allDiags = append(allDiags, diags...)
		if sc != nil {
			m.Shortcuts = append(m.Shortcuts, *sc)
		}
	}

	if allDiags.HasErrors() {
		return nil, &ParseError{Path: path, Err: allDiags}
	}

	logger.Debug("Decoded HCL manifest.", "path", path, "description", m.Description)
	return m, nil
}

func decodeFunction(block *hclBlock, evalCtx *hcl.EvalContext) (*Function, hcl.Diagnostics) {
	content, diags := block.Body.Content(functionBodySchema)
	if diags.HasErrors() {
		return nil, diags
	}

	fn := &Function{Name: block.Name}
	for name, target := range map[string]*string{
		"description": &fn.Description,
		"handler":     &fn.Handler,
		"script":      &fn.Script,
	} {
		if attr, exists := content.Attributes[name]; exists {
			diags = append(diags, gohcl.DecodeExpression(attr.Expr, evalCtx, target)...)
		}
	}

	if attr, exists := content.Attributes["args"]; exists {
		args, err := decodeStringList(attr.Expr, evalCtx)
		if err != nil {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid args",
				Detail:   fmt.Sprintf("function %q: %v", block.Name, err),
				Subject:  attr.Expr.Range().Ptr(),
			})
		}
		fn.Args = args
	}

	if (fn.Handler == "") == (fn.Script == "") {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid function body",
			Detail:   fmt.Sprintf("function %q must set exactly one of \"handler\" or \"script\".", block.Name),
		})
	}

	fn.Description = strings.TrimSpace(fn.Description)
	return fn, diags
}

func decodeAlias(block *hclBlock, evalCtx *hcl.EvalContext) (*Shortcut, hcl.Diagnostics) {
	content, diags := block.Body.Content(aliasBodySchema)
	if diags.HasErrors() {
		return nil, diags
	}

	sc := &Shortcut{Name: block.Name}
	diags = append(diags, gohcl.DecodeExpression(content.Attributes["command"].Expr, evalCtx, &sc.Command)...)
	if attr, exists := content.Attributes["description"]; exists {
		diags = append(diags, gohcl.DecodeExpression(attr.Expr, evalCtx, &sc.Description)...)
	}

	if strings.TrimSpace(sc.Command) == "" && !diags.HasErrors() {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Empty alias command",
			Detail:   fmt.Sprintf("alias %q has an empty command.", block.Name),
		})
	}

	sc.Description = strings.TrimSpace(sc.Description)
	return sc, diags
}

// decodeStringList converts any list- or tuple-shaped value into []string,
// converting numbers and bools the way HCL would in string interpolation.
func decodeStringList(expr hcl.Expression, evalCtx *hcl.EvalContext) ([]string, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if val.IsNull() {
		return nil, nil
	}

	converted, err := convert.Convert(val, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("cannot convert %s to list of strings: %w", val.Type().FriendlyName(), err)
	}

	var out []string
	if err := gocty.FromCtyValue(converted, &out); err != nil {
		return nil, err
	}
	return out, nil
}
