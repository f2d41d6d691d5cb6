package template

import (
	"fmt"
	"regexp"
)

var inputRefRe = regexp.MustCompile(`\{\{\s*inputs\.([^}\s]+)\s*\}\}`)

// Context holds available values for template resolution.
type Context struct {
	Inputs map[string]string
}

// Resolve replaces all {{inputs.Z}} in s.
func Resolve(s string, ctx *Context) (string, error) {
	var resolveErr error

	result := inputRefRe.ReplaceAllStringFunc(s, func(match string) string {
		name := inputRefRe.FindStringSubmatch(match)[1]
		val, ok := ctx.Inputs[name]
		if !ok {
			resolveErr = fmt.Errorf("unresolved input %q", name)
			return match
		}
		return val
	})
	if resolveErr != nil {
		return "", resolveErr
	}
	return result, nil
}

// ResolveAll resolves every string in ss, stopping at the first failure.
func ResolveAll(ss []string, ctx *Context) ([]string, error) {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		r, err := Resolve(s, ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// InputRefs lists the input names referenced in s, in order of appearance.
func InputRefs(s string) []string {
	var refs []string
	for _, m := range inputRefRe.FindAllStringSubmatch(s, -1) {
		refs = append(refs, m[1])
	}
	return refs
}
