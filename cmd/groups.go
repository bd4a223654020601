package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"wisecal/internal/config"
	"wisecal/internal/importer"
	"wisecal/internal/session"

	"github.com/rs/zerolog/log"
)

// groupsCmd lists the course, session type and group combinations of one
// export so owners can pick exclusions.
func groupsCmd(_ context.Context) func() {
	file := config.Gist().String(config.GROUPS_FILE)
	if file == "" {
		help()
		return nil
	}
	body, err := os.ReadFile(file)
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("error reading export")
	}
	records, err := importer.Read(body, config.Location())
	if err != nil {
		log.Fatal().Err(err).Str("file", file).Msg("error parsing export")
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COURSE\tABBR\tTYPE\tGROUP")
	sessions := session.ParseAll(records)
	abbr := map[string]string{}
	for _, s := range sessions {
		abbr[s.Course] = s.CourseAbbr
	}
	for _, f := range session.Filters(sessions) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Course, abbr[f.Course], f.SessionType, f.Group)
	}
	if err := tw.Flush(); err != nil {
		log.Error().Err(err).Msg("error writing groups")
	}
	return nil
}
