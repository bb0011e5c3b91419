package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/liferepo/internal/client/models"
	"github.com/dmitrijs2005/liferepo/internal/client/services"
	"github.com/dmitrijs2005/liferepo/internal/client/session"
	"github.com/dmitrijs2005/liferepo/internal/client/upload"
)

func usage(s string) error {
	return fmt.Errorf("usage: %s", s)
}

// parseFlow accepts the short names "individual" and "group" as well as the
// full flow type values.
func parseFlow(s string) (models.FlowType, error) {
	switch s {
	case "individual":
		return models.FlowIndividualThenGroup, nil
	case "group":
		return models.FlowGroupThenIndividual, nil
	}
	return models.ParseFlowType(s)
}

func (a *App) New(ctx context.Context, args []string) error {
	flow := models.FlowIndividualThenGroup
	if len(args) > 0 {
		f, err := parseFlow(args[0])
		if err != nil {
			return err
		}
		flow = f
	}

	g, err := a.service.NewGroup(ctx, flow)
	if errors.Is(err, services.ErrGroupActive) {
		return fmt.Errorf("%w: finish it with 'upload' or 'cancel' first", err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Started group %s (%s)\n", g.GroupID, g.FlowType)
	return nil
}

func (a *App) Add(ctx context.Context, args []string) error {
	paths, now := splitFlag(args, "-now")
	if len(paths) == 0 {
		return usage("add [-now] <path>...")
	}

	at := time.Now()
	files := make([]session.NewFile, 0, len(paths))
	for i, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		// keep the typed order when several files share a timestamp
		files = append(files, session.NewFile{URI: abs, AddedAt: at.Add(time.Duration(i))})
	}

	added, err := a.service.AddFiles(ctx, files, now)
	fmt.Fprintf(a.out, "Added %d file(s)\n", len(added))
	if err != nil {
		return err
	}
	if now && len(added) > 0 {
		fmt.Fprintln(a.out)
		return a.Show(ctx, nil)
	}
	return nil
}

func (a *App) Remove(ctx context.Context, args []string) error {
	rest, local := splitFlag(args, "-local")
	if len(rest) != 1 {
		return usage("rm [-local] <file_id>")
	}
	if err := a.service.RemoveFile(ctx, rest[0], local); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %s\n", rest[0])
	return nil
}

func (a *App) Title(ctx context.Context, args []string) error {
	return a.service.SetTitle(ctx, strings.Join(args, " "))
}

func (a *App) Describe(ctx context.Context, args []string) error {
	return a.service.SetDescription(ctx, strings.Join(args, " "))
}

func (a *App) Tags(ctx context.Context, args []string) error {
	return a.service.SetTags(ctx, ParseTags(strings.Join(args, " ")))
}

func (a *App) Cover(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("cover <file_id|->")
	}
	id := args[0]
	if id == "-" {
		id = ""
	}
	return a.service.SetCoverImage(ctx, id)
}

func (a *App) Annotate(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("annotate <file_id>")
	}
	g, err := a.service.ActiveGroup()
	if err != nil {
		return err
	}
	f := g.FileByID(args[0])
	if f == nil {
		return fmt.Errorf("%w: %s", models.ErrUnknownFile, args[0])
	}

	desc, err := GetSimpleText(a.scanner, fmt.Sprintf("Description [%s]", f.Description), a.out)
	if err != nil {
		return err
	}
	if desc == "" {
		desc = f.Description
	}
	rawTags, err := GetSimpleText(a.scanner, fmt.Sprintf("Tags [%s]", FormatTags(f.Tags)), a.out)
	if err != nil {
		return err
	}
	tags := f.Tags
	if rawTags != "" {
		tags = ParseTags(rawTags)
	}

	return a.service.AnnotateFile(ctx, f.FileID, desc, tags)
}

func (a *App) Show(_ context.Context, _ []string) error {
	g, err := a.service.ActiveGroup()
	if err != nil {
		return err
	}
	fmt.Fprint(a.out, groupSummary(g))
	if len(g.Files) > 0 {
		fmt.Fprintln(a.out, filesTable(g))
	}
	return nil
}

func (a *App) Upload(ctx context.Context, args []string) error {
	_, all := splitFlag(args, "-all")
	return a.runUpload(ctx, !all)
}

func (a *App) Retry(ctx context.Context, _ []string) error {
	if a.service.Stats().Pending == 0 {
		fmt.Fprintln(a.out, "Nothing to retry")
		return nil
	}
	return a.runUpload(ctx, true)
}

func (a *App) runUpload(ctx context.Context, filterUploaded bool) error {
	out, err := a.service.Upload(ctx, filterUploaded)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out)
	a.printOutcome(out)
	return nil
}

func (a *App) printOutcome(out *upload.Outcome) {
	s := out.Stats
	fmt.Fprintf(a.out, "Group %s: %d of %d file(s) stored", out.GroupID, s.Uploaded, s.Total)
	if len(out.Updated) > 0 {
		fmt.Fprintf(a.out, ", %d annotation update(s)", len(out.Updated))
	}
	fmt.Fprintln(a.out)

	if out.Result == upload.ResultSuccess {
		fmt.Fprintln(a.out, "Upload complete")
		return
	}
	if len(out.Failures) > 0 {
		fmt.Fprintln(a.out, failuresTable(out.Failures))
	}
	if out.LinkErr != nil {
		fmt.Fprintf(a.out, "Linking files to the group failed: %v\n", out.LinkErr)
	}
	fmt.Fprintln(a.out, "Some files are not stored yet; run 'retry' to try again")
}

func (a *App) Save(ctx context.Context, _ []string) error {
	if err := a.service.SaveDraft(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Draft saved")
	return nil
}

func (a *App) Drafts(ctx context.Context, _ []string) error {
	list, err := a.service.ListDrafts(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No drafts")
		return nil
	}
	fmt.Fprintln(a.out, draftsTable(list))
	return nil
}

func (a *App) Enter(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("enter <group_id>")
	}
	g, err := a.service.EnterDraft(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Entered draft %s with %d file(s)\n", g.GroupID, len(g.Files))
	return nil
}

func (a *App) DeleteDraft(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("deldraft <group_id>")
	}
	return a.service.DeleteDraft(ctx, args[0])
}

func (a *App) Cancel(ctx context.Context, args []string) error {
	_, discard := splitFlag(args, "-discard")
	save := !discard && a.service.HasUnsavedFiles()
	if err := a.service.Cancel(ctx, save); err != nil {
		return err
	}
	if save {
		fmt.Fprintln(a.out, "Group saved as a draft")
	} else {
		fmt.Fprintln(a.out, "Group discarded")
	}
	return nil
}

func (a *App) Saved(ctx context.Context, _ []string) error {
	ids, err := a.service.SavedGroupIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Fprintln(a.out, "No saved groups")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(a.out, id)
	}
	return nil
}

func (a *App) Open(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("open <group_id>")
	}
	g, err := a.service.OpenSavedGroup(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Opened group %s with %d file(s)\n", g.GroupID, len(g.Files))
	return nil
}
