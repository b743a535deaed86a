// snapshotconv converts a JSON world snapshot (the payload column of
// world_snapshots) to a YAML scene file that the engine can load.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/l1jgo/engine/internal/component"
	"github.com/l1jgo/engine/internal/core/ecs"
	"github.com/l1jgo/engine/internal/scene"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, "Usage: snapshotconv <snapshot.json> <output.yaml>")
		os.Exit(1)
	}
	n, err := convert(os.Args[1], os.Args[2])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("Converted %d entities to %s\n", n, os.Args[2])
}

func convert(in, out string) (int, error) {
	raw, err := os.ReadFile(in)
	if err != nil {
		return 0, err
	}
	snap, err := scene.UnmarshalJSON(raw)
	if err != nil {
		return 0, err
	}

	// Spawning into a scratch world validates every component and field
	// against the current registry before anything is written.
	reg, err := component.NewRegistry()
	if err != nil {
		return 0, err
	}
	w := ecs.NewWorld(ecs.WithRegistry(reg))
	if _, err := scene.Restore(w, snap); err != nil {
		return 0, fmt.Errorf("invalid snapshot: %w", err)
	}

	// Sort by name, then guid, so diffs between exports stay small
	scn := scene.Capture(w)
	sort.SliceStable(scn.Entities, func(i, j int) bool {
		a, b := scn.Entities[i], scn.Entities[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.GUID < b.GUID
	})
	if err := scene.Save(out, scn); err != nil {
		return 0, err
	}
	return len(scn.Entities), nil
}
