package processor

import (
	"context"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/ricable/ericsson-ran-automation-agentdb-sub007/internal/rtbtypes"
)

// FuncExecutor runs template-defined custom functions in a sandboxed
// interpreter instead of compiled code. Only a whitelist of stdlib
// packages is reachable; no filesystem, network, or exec access.
type FuncExecutor struct {
	allowedPackages map[string]bool

	mu      sync.Mutex
	results map[uint64]rtbtypes.ConfigValue
	hits    uint64
}

// NewFuncExecutor creates an executor with the default package whitelist.
func NewFuncExecutor() *FuncExecutor {
	return &FuncExecutor{
		allowedPackages: map[string]bool{
			"strings": true,
			"strconv": true,
			"fmt":     true,
			"math":    true,
			"sort":    true,
			// Blocked: os, os/exec, net, net/http, syscall, unsafe.
		},
		results: make(map[uint64]rtbtypes.ConfigValue),
	}
}

// Call executes fn with the given argument values and converts the result
// back into a ConfigValue. Results of pure-named functions (calculate_*,
// compute_*, get_*, derive_*, convert_*) are memoized per argument set.
func (fe *FuncExecutor) Call(ctx context.Context, fn rtbtypes.CustomFunction, args []rtbtypes.ConfigValue) (rtbtypes.ConfigValue, error) {
	if len(args) != len(fn.Args) {
		return rtbtypes.Null(), fmt.Errorf("function %s expects %d args, got %d", fn.Name, len(fn.Args), len(args))
	}

	pure := isPureName(fn.Name)
	var key uint64
	if pure {
		key = fe.cacheKey(fn.Name, args)
		fe.mu.Lock()
		cached, ok := fe.results[key]
		if ok {
			fe.hits++
		}
		fe.mu.Unlock()
		if ok {
			return cached, nil
		}
	}

	src, err := fe.render(fn, args)
	if err != nil {
		return rtbtypes.Null(), err
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return rtbtypes.Null(), fmt.Errorf("loading interpreter symbols: %w", err)
	}
	if _, err := i.Eval(src); err != nil {
		return rtbtypes.Null(), fmt.Errorf("function %s failed to evaluate: %w", fn.Name, err)
	}
	v, err := i.Eval("main.RTBCall")
	if err != nil {
		return rtbtypes.Null(), fmt.Errorf("function %s: entry point missing: %w", fn.Name, err)
	}
	call, ok := v.Interface().(func() interface{})
	if !ok {
		return rtbtypes.Null(), fmt.Errorf("function %s has an unexpected signature", fn.Name)
	}

	resCh := make(chan interface{}, 1)
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("function %s panicked: %v", fn.Name, r)
			}
		}()
		resCh <- call()
	}()

	var raw interface{}
	select {
	case raw = <-resCh:
	case err := <-errCh:
		return rtbtypes.Null(), err
	case <-ctx.Done():
		return rtbtypes.Null(), fmt.Errorf("function %s timed out: %w", fn.Name, ctx.Err())
	}

	out, err := rtbtypes.FromInterface(raw)
	if err != nil {
		return rtbtypes.Null(), fmt.Errorf("function %s returned an unsupported value: %w", fn.Name, err)
	}
	if pure {
		fe.mu.Lock()
		fe.results[key] = out
		fe.mu.Unlock()
	}
	return out, nil
}

// CacheHits reports how many calls were answered from the result cache.
func (fe *FuncExecutor) CacheHits() uint64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.hits
}

// render builds the interpreter source: argument bindings as typed
// literals, then the body verbatim, wrapped in an entry point returning
// interface{}.
func (fe *FuncExecutor) render(fn rtbtypes.CustomFunction, args []rtbtypes.ConfigValue) (string, error) {
	body := strings.Join(fn.Body, "\n")
	if err := fe.validateBody(fn.Name, body); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("package main\n\n")
	for pkg := range fe.allowedPackages {
		if strings.Contains(body, pkg+".") {
			fmt.Fprintf(&b, "import %q\n", pkg)
		}
	}
	b.WriteString("\nfunc RTBCall() interface{} {\n")
	for idx, name := range fn.Args {
		lit, err := goLiteral(args[idx])
		if err != nil {
			return "", fmt.Errorf("function %s arg %s: %w", fn.Name, name, err)
		}
		fmt.Fprintf(&b, "\t%s := %s\n\t_ = %s\n", name, lit, name)
	}
	b.WriteString(indentBody(body))
	b.WriteString("\n}\n")
	return b.String(), nil
}

// validateBody rejects bodies that reference packages outside the
// whitelist or try to smuggle in declarations.
func (fe *FuncExecutor) validateBody(name, body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("function %s has an empty body", name)
	}
	if !strings.Contains(body, "return") {
		return fmt.Errorf("function %s body never returns", name)
	}
	for _, forbidden := range []string{"import", "package ", "os.", "exec.", "syscall.", "unsafe.", "net.", "http."} {
		if strings.Contains(body, forbidden) {
			return fmt.Errorf("function %s body uses forbidden construct %q", name, strings.TrimSpace(forbidden))
		}
	}
	return nil
}

// goLiteral renders a scalar argument as Go source. Custom functions take
// scalar inputs only; composite values must be decomposed by the caller.
func goLiteral(v rtbtypes.ConfigValue) (string, error) {
	switch v.Kind() {
	case rtbtypes.KindNumber:
		// Wrapped so integral values still bind as float64.
		return "float64(" + strconv.FormatFloat(v.NumberVal(), 'g', -1, 64) + ")", nil
	case rtbtypes.KindString:
		return strconv.Quote(v.StringVal()), nil
	case rtbtypes.KindBool:
		return strconv.FormatBool(v.BoolVal()), nil
	}
	return "", fmt.Errorf("unsupported argument kind %s", v.Kind())
}

func indentBody(body string) string {
	lines := strings.Split(body, "\n")
	for i, l := range lines {
		lines[i] = "\t" + l
	}
	return strings.Join(lines, "\n")
}

func (fe *FuncExecutor) cacheKey(name string, args []rtbtypes.ConfigValue) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	for _, a := range args {
		h.Write([]byte{0})
		h.Write([]byte(a.Canonical()))
	}
	return h.Sum64()
}

var pureNamePrefixes = []string{"calculate_", "compute_", "get_", "derive_", "convert_"}

func isPureName(name string) bool {
	for _, p := range pureNamePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
