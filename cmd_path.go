package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"darkest-dnd-server/config"
	"darkest-dnd-server/pathfinding"
)

var (
	pathPreset   string
	pathFile     string
	pathAsPlayer bool
	pathShow     bool
)

var pathCmd = &cobra.Command{
	Use:   "path <start-row> <start-col> <goal-row> <goal-col>",
	Short: "Find a path on a map and print it",
	Long: `Runs the same A* search peers use on a preset or map file and prints the
path cost and an ASCII rendering. By default the search runs as the game
master, so unexplored tiles are allowed.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		coords := make([]int, 4)
		for i, a := range args {
			v, err := strconv.Atoi(a)
			if err != nil {
				return fmt.Errorf("invalid coordinate %q: %w", a, err)
			}
			coords[i] = v
		}

		cfg := config.Load()
		cfg.MapPreset = pathPreset
		cfg.MapFile = pathFile
		_, grid, err := loadGrid(cfg)
		if err != nil {
			return err
		}

		path, err := pathfinding.FindPath(grid, coords[0], coords[1], coords[2], coords[3], !pathAsPlayer)
		if err != nil {
			return fmt.Errorf("find path: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "--------------------------------------------------")
		fmt.Fprintf(out, "  Grid size: %dx%d\n", grid.Rows(), grid.Cols())
		fmt.Fprintf(out, "  Start: (%d, %d)  Goal: (%d, %d)\n", coords[0], coords[1], coords[2], coords[3])
		fmt.Fprintf(out, "  Steps: %d  Cost: %.3f\n", len(path)-1, pathfinding.Cost(path))
		fmt.Fprintln(out, "--------------------------------------------------")
		if pathShow {
			fmt.Fprint(out, pathfinding.RenderASCII(grid, path))
		}
		return nil
	},
}

func init() {
	pathCmd.Flags().StringVar(&pathPreset, "map", config.DefaultPresetName, "map preset")
	pathCmd.Flags().StringVar(&pathFile, "file", "", "map file (.png or .txt), overrides the preset image")
	pathCmd.Flags().BoolVar(&pathAsPlayer, "player", false, "search as a player: unexplored tiles are blocked")
	pathCmd.Flags().BoolVar(&pathShow, "show", true, "print the grid with the path")
}
