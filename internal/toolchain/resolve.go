package toolchain

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/constants"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/document"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/errors"
	"github.com/jhonToni/VS-Code-STM32-IDE/pkg/logging"
)

// Resolver proposes replacements for stale keys. It returns an updated copy
// of doc; keys it cannot resolve are left as they were.
type Resolver interface {
	Resolve(ctx context.Context, doc *document.Document, stale []string) (*document.Document, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, doc *document.Document, stale []string) (*document.Document, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(ctx context.Context, doc *document.Document, stale []string) (*document.Document, error) {
	return f(ctx, doc, stale)
}

// Reconcile verifies doc and, when paths are stale, asks resolver for
// replacements. It returns the updated document and the keys that were
// replaced. Keys still unresolved afterwards yield a StalePathError.
func Reconcile(ctx context.Context, doc *document.Document, resolver Resolver) (*document.Document, []string, error) {
	report := Verify(doc)
	if report.AllValid() {
		return doc, nil, nil
	}

	logging.FromContext(ctx).Warn().
		Strs("keys", report.Stale).
		Msg("Recorded toolchain paths are invalid, resolving replacements")

	if resolver == nil {
		return nil, nil, errors.NewStalePathError(report.Stale, nil)
	}

	updated, err := resolver.Resolve(ctx, doc, report.Stale)
	if errors.Is(err, errors.ErrCanceled) {
		return nil, nil, err
	}
	if err != nil {
		return nil, nil, errors.NewStalePathError(report.Stale, err)
	}

	if remaining := Verify(updated); !remaining.AllValid() {
		return nil, nil, errors.NewStalePathError(remaining.Stale, nil)
	}
	return updated, report.Stale, nil
}

// Chain runs resolvers in order; each one only sees the keys its
// predecessors left unresolved.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(ctx context.Context, doc *document.Document, stale []string) (*document.Document, error) {
	current := doc
	for _, r := range c {
		pending := stillStale(current, stale)
		if len(pending) == 0 {
			break
		}
		next, err := r.Resolve(ctx, current, pending)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func stillStale(doc *document.Document, keys []string) []string {
	var out []string
	for _, key := range keys {
		req, ok := Lookup(key)
		if !ok {
			continue
		}
		value, _ := doc.String(key)
		if !req.Satisfied(value) {
			out = append(out, key)
		}
	}
	return out
}

// LookupResolver finds executables on PATH and derives the compiler's
// include folder. It never asks the user.
type LookupResolver struct {
	// LookPath defaults to exec.LookPath.
	LookPath func(file string) (string, error)
}

// Resolve implements Resolver.
func (r *LookupResolver) Resolve(ctx context.Context, doc *document.Document, stale []string) (*document.Document, error) {
	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	logger := logging.FromContext(ctx)
	out := doc.Clone()

	executables := map[string]string{
		constants.KeyBuildToolsPath: constants.DefaultMakeExecutable,
		constants.KeyGccExePath:     constants.DefaultGccExecutable,
		constants.KeyOpenOCDPath:    constants.DefaultOpenOCDExecutable,
	}

	for _, req := range Requirements {
		if !contains(stale, req.Key) {
			continue
		}

		var candidate string
		if name, ok := executables[req.Key]; ok {
			found, err := lookPath(name)
			if err != nil {
				continue
			}
			candidate = found
		} else if req.Key == constants.KeyGccIncludePath {
			gcc, _ := out.String(constants.KeyGccExePath)
			if gcc == "" {
				continue
			}
			candidate = GccIncludeDir(gcc)
		} else {
			continue
		}

		if abs, err := filepath.Abs(candidate); err == nil {
			candidate = abs
		}
		if !req.Satisfied(candidate) {
			continue
		}
		if err := out.Set(req.Key, filepath.ToSlash(candidate)); err != nil {
			return nil, err
		}
		logger.Info().Str("key", req.Key).Str("path", candidate).Msg("Resolved toolchain path")
	}
	return out, nil
}

// GccIncludeDir returns <gcc bin>/../arm-none-eabi/include.
func GccIncludeDir(gccExePath string) string {
	return filepath.Join(filepath.Dir(filepath.Dir(gccExePath)), constants.GccTargetTriple, "include")
}

// PromptResolver asks for each stale path on a terminal.
type PromptResolver struct {
	In  io.Reader
	Out io.Writer
	// Attempts per key before giving up on it; defaults to 3.
	Attempts int
}

// Resolve implements Resolver.
func (r *PromptResolver) Resolve(ctx context.Context, doc *document.Document, stale []string) (*document.Document, error) {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	reader := bufio.NewReader(r.In)
	label := color.New(color.FgCyan, color.Bold)
	warn := color.New(color.FgYellow)
	out := doc.Clone()

	for _, key := range stale {
		req, ok := Lookup(key)
		if !ok {
			continue
		}

		for i := 0; i < attempts; i++ {
			if err := ctx.Err(); err != nil {
				return nil, errors.ErrCanceled
			}

			_, _ = label.Fprintf(r.Out, "%s", key)
			_, _ = fmt.Fprintf(r.Out, " (%s): ", req.Description)

			line, err := readLine(ctx, reader)
			if errors.Is(err, errors.ErrCanceled) {
				return nil, err
			}
			answer := cleanAnswer(line)
			if answer != "" && req.Satisfied(answer) {
				if setErr := out.Set(key, filepath.ToSlash(answer)); setErr != nil {
					return nil, setErr
				}
				break
			}
			if err != nil {
				// input exhausted; remaining keys stay stale
				return out, nil
			}
			if answer == "" && req.Optional {
				if setErr := out.Set(key, ""); setErr != nil {
					return nil, setErr
				}
				break
			}
			_, _ = warn.Fprintf(r.Out, "  path %q does not exist or is not a %s\n", answer, kindName(req.Kind))
		}
	}
	return out, nil
}

type lineResult struct {
	line string
	err  error
}

// readLine reads one line from reader, returning errors.ErrCanceled as soon
// as ctx is done. The pending read is abandoned on cancellation.
func readLine(ctx context.Context, reader *bufio.Reader) (string, error) {
	result := make(chan lineResult, 1)
	go func() {
		line, err := reader.ReadString('\n')
		result <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", errors.ErrCanceled
	case r := <-result:
		return r.line, r.err
	}
}

func cleanAnswer(line string) string {
	answer := strings.TrimSpace(line)
	return strings.Trim(answer, `"'`)
}

func kindName(k Kind) string {
	if k == KindDir {
		return "folder"
	}
	return "file"
}

func contains(items []string, s string) bool {
	for _, item := range items {
		if item == s {
			return true
		}
	}
	return false
}
