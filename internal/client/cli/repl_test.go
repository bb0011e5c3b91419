package cli

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	calls []string
	args  map[string][]string
	fail  map[string]error
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	if f.args == nil {
		f.args = map[string][]string{}
	}
	f.args[name] = args
	return f.fail[name]
}

func (f *fakeExec) New(_ context.Context, a []string) error      { return f.record("new", a) }
func (f *fakeExec) Add(_ context.Context, a []string) error      { return f.record("add", a) }
func (f *fakeExec) Remove(_ context.Context, a []string) error   { return f.record("rm", a) }
func (f *fakeExec) Title(_ context.Context, a []string) error    { return f.record("title", a) }
func (f *fakeExec) Describe(_ context.Context, a []string) error { return f.record("desc", a) }
func (f *fakeExec) Tags(_ context.Context, a []string) error     { return f.record("tags", a) }
func (f *fakeExec) Cover(_ context.Context, a []string) error    { return f.record("cover", a) }
func (f *fakeExec) Annotate(_ context.Context, a []string) error { return f.record("annotate", a) }
func (f *fakeExec) Show(_ context.Context, a []string) error     { return f.record("show", a) }
func (f *fakeExec) Upload(_ context.Context, a []string) error   { return f.record("upload", a) }
func (f *fakeExec) Retry(_ context.Context, a []string) error    { return f.record("retry", a) }
func (f *fakeExec) Save(_ context.Context, a []string) error     { return f.record("save", a) }
func (f *fakeExec) Drafts(_ context.Context, a []string) error   { return f.record("drafts", a) }
func (f *fakeExec) Enter(_ context.Context, a []string) error    { return f.record("enter", a) }
func (f *fakeExec) DeleteDraft(_ context.Context, a []string) error {
	return f.record("deldraft", a)
}
func (f *fakeExec) Cancel(_ context.Context, a []string) error { return f.record("cancel", a) }
func (f *fakeExec) Saved(_ context.Context, a []string) error  { return f.record("saved", a) }
func (f *fakeExec) Open(_ context.Context, a []string) error   { return f.record("open", a) }

func capturePrint(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i] = strings.Join(strings.Fields(toString(v)), " ")
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case error:
		return x.Error()
	}
	return ""
}

func TestRunREPL_DispatchesEveryCommand(t *testing.T) {
	capturePrint(t)

	input := strings.Join([]string{
		"new group", "add -now a.jpg b.jpg", "rm -local f1", "title Market day", "desc fresh",
		"tags fruit*, veg", "cover f2", "annotate f2", "show", "upload -all", "retry", "save",
		"drafts", "enter g1", "deldraft g1", "cancel -discard", "saved", "open g2", "exit",
		"new never-reached",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(strings.NewReader(input)))

	assert.Equal(t, []string{
		"new", "add", "rm", "title", "desc", "tags", "cover", "annotate", "show", "upload", "retry",
		"save", "drafts", "enter", "deldraft", "cancel", "saved", "open",
	}, exec.calls)
	assert.Equal(t, []string{"-now", "a.jpg", "b.jpg"}, exec.args["add"])
	assert.Equal(t, []string{"Market", "day"}, exec.args["title"])
	assert.Equal(t, []string{"g2"}, exec.args["open"])
}

func TestRunREPL_ReportsErrorsAndUnknownCommands(t *testing.T) {
	lines := capturePrint(t)

	exec := &fakeExec{fail: map[string]error{"upload": errors.New("no active group")}}
	input := "\nupload\nfoobar\nhelp\nquit\n"
	runREPL(context.Background(), exec, func() string { return "(online)" }, bufio.NewScanner(strings.NewReader(input)))

	out := strings.Join(*lines, "\n")
	assert.Contains(t, out, "lrcli (online)>")
	assert.Contains(t, out, "Error: no active group")
	assert.Contains(t, out, "Unknown command: foobar")
	assert.Contains(t, out, "annotate <file_id>")
	assert.Contains(t, out, "Bye!")
	assert.Equal(t, []string{"upload"}, exec.calls)
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	capturePrint(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("show")))

	assert.Equal(t, []string{"show"}, exec.calls)
}
