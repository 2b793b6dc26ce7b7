package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/woozymasta/shp2geojson/internal/convert"
)

type InfoCommand struct {
	JSON bool `short:"j" long:"json" description:"Print JSON instead of text"`

	Args struct {
		Sources []string `positional-arg-name:"SOURCE" required:"1"`
	} `positional-args:"yes"`
}

func (c *InfoCommand) Execute(_ []string) error {
	cfg, catalog, err := environment(nil)
	if err != nil {
		return err
	}
	defer func() { _ = catalog.Close() }()

	conv := newConverter(catalog, cfg, "", false)

	all := make(map[string]*convert.Projection, len(c.Args.Sources))
	for i, src := range c.Args.Sources {
		p, err := conv.Inspect(src)
		if err != nil {
			return err
		}
		if c.JSON {
			all[src] = p
			continue
		}
		if i > 0 {
			fmt.Println()
		}
		if len(c.Args.Sources) > 1 {
			fmt.Printf("== %s\n", src)
		}
		fmt.Println(p)
	}

	if c.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(all)
	}
	return nil
}
