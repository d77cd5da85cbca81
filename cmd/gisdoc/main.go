package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ergochat/readline"
	"github.com/jupytergis/gisdoc"
	"gopkg.in/yaml.v3"
)

// Config seeds a new document from a YAML file.
type Config struct {
	Path       string    `yaml:"path"`
	Latitude   *float64  `yaml:"latitude"`
	Longitude  *float64  `yaml:"longitude"`
	Zoom       *float64  `yaml:"zoom"`
	Bearing    *float64  `yaml:"bearing"`
	Pitch      *float64  `yaml:"pitch"`
	Extent     []float64 `yaml:"extent"`
	Projection string    `yaml:"projection"`
}

func (c *Config) view() *gisdoc.ViewOptions {
	return &gisdoc.ViewOptions{
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
		Zoom:       c.Zoom,
		Bearing:    c.Bearing,
		Pitch:      c.Pitch,
		Extent:     c.Extent,
		Projection: c.Projection,
	}
}

var completer = readline.NewPrefixCompleter(
	readline.PcItem("help"),

	readline.PcItem("raster"),
	readline.PcItem("vectortile"),
	readline.PcItem("geojson"),
	readline.PcItem("image"),
	readline.PcItem("video"),

	readline.PcItem("layers"),
	readline.PcItem("sources"),
	readline.PcItem("tree"),
	readline.PcItem("options"),

	readline.PcItem("filter",
		readline.PcItem("add"),
		readline.PcItem("update"),
		readline.PcItem("clear"),
	),

	readline.PcItem("exit"),
	readline.PcItem("quit"),
)

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

type REPL struct {
	doc *gisdoc.Document
	rl  *readline.Instance
}

func (repl *REPL) open() (err error) {
	repl.rl, err = readline.NewEx(&readline.Config{
		Prompt:          "◌ ",
		HistoryFile:     ".gisdoc_cmd_log.txt",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return
	}
	repl.rl.CaptureExitSignal()
	return
}

const help = `raster <url> [name]                add a raster tile layer
vectortile <url> [sublayer] [name] add a vector tile layer
geojson <path> [name]              add a GeoJSON layer from a file
image <url> <lng,lat>*4 [name]     add a georeferenced image layer
video <url[,url]> <lng,lat>*4      add a georeferenced video layer
layers / sources / tree / options  inspect the document
filter add <layer> <all|any> <feature> <op> <value>
filter update <layer> <all|any> <feature> <op> <value>
filter clear <layer>
exit`

func parseCoords(args []string) ([][2]float64, []string, error) {
	coords := make([][2]float64, 0, 4)
	for len(args) > 0 && len(coords) < 4 {
		parts := strings.SplitN(args[0], ",", 2)
		if len(parts) != 2 {
			break
		}
		lng, errX := strconv.ParseFloat(parts[0], 64)
		lat, errY := strconv.ParseFloat(parts[1], 64)
		if errX != nil || errY != nil {
			return nil, nil, fmt.Errorf("bad coordinate %q", args[0])
		}
		coords = append(coords, [2]float64{lng, lat})
		args = args[1:]
	}
	if len(coords) != 4 {
		return nil, nil, fmt.Errorf("need four lng,lat corner coordinates")
	}
	return coords, args, nil
}

func scalarOf(text string) gisdoc.Scalar {
	if n, err := strconv.ParseFloat(text, 64); err == nil {
		return gisdoc.Number(n)
	}
	if b, err := strconv.ParseBool(text); err == nil {
		return gisdoc.Bool(b)
	}
	return gisdoc.String(text)
}

func (repl *REPL) filterCmd(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("filter add|update|clear ...")
	}
	verb := args[0]
	args = args[1:]
	if verb == "clear" {
		if len(args) != 1 {
			return fmt.Errorf("filter clear <layer>")
		}
		return repl.doc.ClearFilters(args[0])
	}
	if len(args) != 5 {
		return fmt.Errorf("filter %s <layer> <all|any> <feature> <op> <value>", verb)
	}
	layerID, logicalOp, feature, operator := args[0], args[1], args[2], args[3]
	value := scalarOf(args[4])
	switch verb {
	case "add":
		return repl.doc.AddFilter(layerID, logicalOp, feature, operator, value)
	case "update":
		return repl.doc.UpdateFilter(layerID, logicalOp, feature, operator, value)
	}
	return fmt.Errorf("unknown filter command %q", verb)
}

func (repl *REPL) run(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "help":
		fmt.Println(help)

	case "raster":
		if len(args) == 0 {
			return fmt.Errorf("raster <url> [name]")
		}
		opts := gisdoc.RasterLayerOptions{Name: strings.Join(args[1:], " ")}
		id, err := repl.doc.AddRasterLayer(args[0], opts)
		if err != nil {
			return err
		}
		fmt.Println(id)

	case "vectortile":
		if len(args) == 0 {
			return fmt.Errorf("vectortile <url> [sublayer] [name]")
		}
		opts := gisdoc.VectorTileLayerOptions{}
		if len(args) > 1 {
			opts.SourceLayer = args[1]
			opts.Name = strings.Join(args[2:], " ")
		}
		id, err := repl.doc.AddVectorTileLayer(context.Background(), args[0], opts)
		if err != nil {
			return err
		}
		fmt.Println(id)

	case "geojson":
		if len(args) == 0 {
			return fmt.Errorf("geojson <path> [name]")
		}
		opts := gisdoc.GeoJSONLayerOptions{
			Path: args[0],
			Name: strings.Join(args[1:], " "),
		}
		id, err := repl.doc.AddGeoJSONLayer(opts)
		if err != nil {
			return err
		}
		fmt.Println(id)

	case "image":
		if len(args) < 5 {
			return fmt.Errorf("image <url> <lng,lat>*4 [name]")
		}
		coords, rest, err := parseCoords(args[1:])
		if err != nil {
			return err
		}
		opts := gisdoc.ImageLayerOptions{Name: strings.Join(rest, " ")}
		id, err := repl.doc.AddImageLayer(args[0], coords, opts)
		if err != nil {
			return err
		}
		fmt.Println(id)

	case "video":
		if len(args) < 5 {
			return fmt.Errorf("video <url[,url]> <lng,lat>*4 [name]")
		}
		coords, rest, err := parseCoords(args[1:])
		if err != nil {
			return err
		}
		opts := gisdoc.VideoLayerOptions{Name: strings.Join(rest, " ")}
		id, err := repl.doc.AddVideoLayer(strings.Split(args[0], ","), coords, opts)
		if err != nil {
			return err
		}
		fmt.Println(id)

	case "layers":
		for id, layer := range repl.doc.SnapshotLayers() {
			fmt.Printf("%s\t%s\t%q\n", id, layer.Type(), layer.Name())
		}

	case "sources":
		for id, source := range repl.doc.SnapshotSources() {
			fmt.Printf("%s\t%s\t%q\n", id, source.Type(), source.Name())
		}

	case "tree":
		for i, node := range repl.doc.SnapshotTree() {
			if node.Group != nil {
				fmt.Printf("%d\tgroup %q (%d children)\n", i, node.Group.Name, len(node.Group.Children))
			} else {
				fmt.Printf("%d\t%s\n", i, node.LayerID)
			}
		}

	case "options":
		for key, value := range repl.doc.SnapshotOptions() {
			fmt.Printf("%s\t%v\n", key, value)
		}

	case "filter":
		return repl.filterCmd(args)

	case "exit", "quit":
		return io.EOF

	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func main() {
	configPath := flag.String("config", "", "YAML config with the document path and initial view")
	dataPath := flag.String("path", "", "document directory; empty for in-memory")
	flag.Parse()

	var config Config
	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err == nil {
			err = yaml.Unmarshal(raw, &config)
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, "bad config:", err)
			os.Exit(1)
		}
	}
	if *dataPath != "" {
		config.Path = *dataPath
	}

	doc, err := gisdoc.Open(config.Path, gisdoc.Options{View: config.view()})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer doc.Close()

	repl := &REPL{doc: doc}
	if err = repl.open(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer repl.rl.Close()

	for {
		line, err := repl.rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		} else if err != nil {
			break
		}
		if err = repl.run(strings.TrimSpace(line)); err == io.EOF {
			break
		} else if err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}
