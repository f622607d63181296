package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	paneov1 "github.com/jamesainslie/paneo/pkg/api/paneo/v1"
	"github.com/jamesainslie/paneo/pkg/client"
	"github.com/jamesainslie/paneo/pkg/paneo/output"
)

// rpcTimeout bounds short request/response calls.
const rpcTimeout = 30 * time.Second

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "List configured roots",
	Args:  cobra.NoArgs,
	RunE:  runRoots,
}

var lsCmd = &cobra.Command{
	Use:   "ls <root>:<path>",
	Short: "List a directory",
	Long: `List a directory inside a root. Directories come first.

Examples:
  paneo ls media:              # Root directory
  paneo ls root-1:photos/2024  # By root id`,
	Args: cobra.ExactArgs(1),
	RunE: runLs,
}

var moveCmd = &cobra.Command{
	Use:   "move <root>:<path> <root>:<dir>",
	Short: "Move an entry into a directory",
	Long: `Move an entry into a directory, possibly in another root.

The move renames in place when possible and falls back to copy and delete
across filesystems. An existing destination is never overwritten.`,
	Args: cobra.ExactArgs(2),
	RunE: runMove,
}

func init() {
	rootCmd.AddCommand(rootsCmd)
	rootCmd.AddCommand(lsCmd)
	rootCmd.AddCommand(moveCmd)

	moveCmd.Flags().String("name", "", "name at the destination (default: source name)")
}

func runRoots(_ *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	roots, err := c.Roots(ctx)
	if err != nil {
		return err
	}

	r := output.NewResult("Roots", "ID", "Name", "Path")
	for _, root := range roots {
		r.AddRow(root.ID, root.Name, root.Path)
	}
	r.Data = roots
	return render(r)
}

func runLs(_ *cobra.Command, args []string) error {
	loc, err := parseLocation(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	ids, err := resolveLocations(ctx, c, loc)
	if err != nil {
		return err
	}
	listing, err := c.List(ctx, ids[0], loc.Path)
	if err != nil {
		return err
	}

	return render(listingResult(listing))
}

func listingResult(listing *paneov1.ListResponse) *output.Result {
	r := output.NewResult("Directory", "Name", "Type", "Size", "Modified")
	r.Source = listing.RootName + ":/" + listing.Path

	var files, dirs int
	var total int64
	for _, e := range listing.Entries {
		kind, size := "file", humanize.IBytes(uint64(max(e.Size, 0)))
		if e.IsDirectory {
			kind, size = "dir", "-"
			dirs++
		} else {
			files++
			total += e.Size
		}
		r.AddRow(e.Name, kind, size, e.ModTime.Local().Format("2006-01-02 15:04"))
	}
	r.Summary = []string{fmt.Sprintf("%d directories, %d files, %s", dirs, files, humanize.IBytes(uint64(total)))}
	r.Data = listing
	return r
}

func runMove(cmd *cobra.Command, args []string) error {
	from, err := parseLocation(args[0])
	if err != nil {
		return err
	}
	to, err := parseLocation(args[1])
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("name")

	ctx, cancel := context.WithTimeout(context.Background(), rpcTimeout)
	defer cancel()

	c, err := connect(ctx)
	if err != nil {
		return err
	}
	defer c.Close()

	ids, err := resolveLocations(ctx, c, from, to)
	if err != nil {
		return err
	}

	err = c.Move(ctx, paneov1.MoveRequest{
		FromRootID: ids[0],
		FromPath:   from.Path,
		ToRootID:   ids[1],
		ToDirPath:  to.Path,
		NewName:    name,
	})
	if err != nil {
		return err
	}
	printInfo("Moved %s to %s", from, to)
	return nil
}

// resolveLocations maps the root of every location to a root id.
func resolveLocations(ctx context.Context, c *client.Client, locs ...location) ([]string, error) {
	roots, err := c.Roots(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(locs))
	for i, l := range locs {
		if ids[i], err = resolveRootID(roots, l.Root); err != nil {
			return nil, err
		}
	}
	return ids, nil
}
