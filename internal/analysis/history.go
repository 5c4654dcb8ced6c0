package analysis

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/framegrade/framegrade/internal/conf"
	"github.com/framegrade/framegrade/internal/datastore"
	"github.com/framegrade/framegrade/internal/errors"
)

// History prints stored evaluations, newest first. An empty source lists
// every video.
func History(settings *conf.Settings, source string, limit int, w io.Writer) error {
	if !settings.Output.SQLite.Enabled {
		return errors.Newf("report store is disabled, set output.sqlite.enabled").
			Component("analysis").
			Category(errors.CategoryConfiguration).
			Build()
	}
	store := datastore.NewSQLiteStore(settings.Output.SQLite.Path, nil)
	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return listHistory(store, source, limit, w)
}

func listHistory(store datastore.Interface, source string, limit int, w io.Writer) error {
	rows, err := store.List(source, limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSOURCE\tFRAMES\tDOMINANT\tRUN")
	for i := range rows {
		e := &rows[i]
		share := 0.0
		for _, s := range e.Shares {
			if s.Class == e.Dominant {
				share = s.Percent
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s %.1f%%\t%s\n",
			e.StartedAt.Local().Format(time.DateTime), e.Source, e.Frames, e.Dominant, share, e.RunID)
	}
	return tw.Flush()
}
