package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL dispatches to. The real App
// satisfies it; tests provide a lightweight stub.
type execIface interface {
	New(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	Title(ctx context.Context, args []string) error
	Describe(ctx context.Context, args []string) error
	Tags(ctx context.Context, args []string) error
	Cover(ctx context.Context, args []string) error
	Annotate(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Upload(ctx context.Context, args []string) error
	Retry(ctx context.Context, args []string) error
	Save(ctx context.Context, args []string) error
	Drafts(ctx context.Context, args []string) error
	Enter(ctx context.Context, args []string) error
	DeleteDraft(ctx context.Context, args []string) error
	Cancel(ctx context.Context, args []string) error
	Saved(ctx context.Context, args []string) error
	Open(ctx context.Context, args []string) error
}

const helpText = `Commands:
  new [individual|group]    start a new group
  add [-now] <path>...      add files (-now uploads them right away)
  rm [-local] <file_id>     remove a file (-local also deletes it from disk)
  title <text>              set the group title
  desc <text>               set the group description
  tags <a, b*, ...>         set the group tags (* marks featured)
  cover <file_id|->         set or clear the cover image
  annotate <file_id>        edit a file's description and tags
  show                      show the active group
  upload [-all]             upload the group (-all refreshes uploaded files too)
  retry                     upload files that are not stored yet
  save                      save the active group as a draft
  drafts                    list drafts
  enter <group_id>          make a draft active
  deldraft <group_id>       delete a draft
  cancel [-discard]         leave the active group, saving it as a draft
  saved                     list groups stored on the server
  open <group_id>           open a stored group for editing
  exit | quit               leave the program`

// runREPL reads commands line by line and dispatches them to a. Errors are
// printed and the loop continues. It returns on EOF or "exit"/"quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("lrcli %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			printlnFn(helpText)
		case "new":
			err = a.New(ctx, args)
		case "add":
			err = a.Add(ctx, args)
		case "rm":
			err = a.Remove(ctx, args)
		case "title":
			err = a.Title(ctx, args)
		case "desc":
			err = a.Describe(ctx, args)
		case "tags":
			err = a.Tags(ctx, args)
		case "cover":
			err = a.Cover(ctx, args)
		case "annotate":
			err = a.Annotate(ctx, args)
		case "show":
			err = a.Show(ctx, args)
		case "upload":
			err = a.Upload(ctx, args)
		case "retry":
			err = a.Retry(ctx, args)
		case "save":
			err = a.Save(ctx, args)
		case "drafts":
			err = a.Drafts(ctx, args)
		case "enter":
			err = a.Enter(ctx, args)
		case "deldraft":
			err = a.DeleteDraft(ctx, args)
		case "cancel":
			err = a.Cancel(ctx, args)
		case "saved":
			err = a.Saved(ctx, args)
		case "open":
			err = a.Open(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if err != nil {
			printlnFn("Error:", err)
		}
	}
}
