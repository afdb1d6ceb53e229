package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	ihcnuclearcount "github.com/xwxf04-crypto/ihc-nuclear-count"
	"github.com/xwxf04-crypto/ihc-nuclear-count/internal/config"
	"github.com/xwxf04-crypto/ihc-nuclear-count/internal/logger"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/geometry"
	"github.com/xwxf04-crypto/ihc-nuclear-count/pkg/processing"
)

func main() {
	var in, op, points, instruction, out, configPath string
	var backend, url, model, storeDir, logLevel string
	var threshold float64
	var passes int

	flag.StringVar(&configPath, "config", "", "config file path (default "+config.GetConfigPath()+")")
	flag.StringVar(&in, "in", "", "input IHC image path (png/jpg/webp)")
	flag.StringVar(&op, "op", "count", "operation: quality|count|edit|restore")
	flag.StringVar(&points, "points", "", "selection polygon as \"x,y;x,y;...\" in 0-100 units; last point near the first closes it")
	flag.StringVar(&instruction, "instruction", "", "edit instruction (for -op edit)")
	flag.StringVar(&out, "out", "", "output path for the edited image (for -op edit)")

	flag.StringVar(&backend, "backend", "", "model backend: ollama or openai")
	flag.StringVar(&url, "url", "", "model server URL")
	flag.StringVar(&model, "model", "", "model name")
	flag.StringVar(&storeDir, "store", "", "session store directory (default per-user data dir)")
	flag.StringVar(&logLevel, "loglevel", "", "log level: debug|info|warn|error")
	flag.Float64Var(&threshold, "threshold", 0, "polygon closure radius in normalized units (default 2.0)")
	flag.IntVar(&passes, "passes", 0, "counting passes per analysis (default 2)")

	flag.Parse()

	// .env keys override file values, flags override both.
	_ = godotenv.Load()
	cfg := config.Default()
	if configPath == "" {
		configPath = config.GetConfigPath()
	}
	if loaded, err := config.LoadFromFile(configPath); err == nil {
		cfg = loaded
	} else if !errors.Is(err, os.ErrNotExist) {
		log.Fatalf("loading config %s: %v", configPath, err)
	}
	cfg.ApplyEnv()
	applyFlags(cfg, backend, url, model, storeDir, logLevel, threshold, passes)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zlog := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	ws, err := ihcnuclearcount.New(ihcnuclearcount.Options{
		Backend:          cfg.Model.Backend,
		ServerURL:        cfg.Model.URL,
		Model:            cfg.Model.Name,
		SendFormat:       cfg.Model.SendFormat,
		SendMaxDim:       cfg.Model.SendMaxDim,
		SendQuality:      cfg.Model.SendQuality,
		StoreDir:         cfg.Store.Dir,
		ClosureThreshold: cfg.Selection.ClosureThreshold,
		Passes:           cfg.Analysis.Passes,
		Logger:           &zlog,
	})
	if err != nil {
		log.Fatal(err)
	}
	ctrl := ws.Controller

	if op == "restore" {
		snap := ws.Snapshot()
		if snap.Result == nil {
			fmt.Println("no saved session")
			return
		}
		printJSON(map[string]any{
			"image":  snap.ImageName,
			"result": snap.Result,
		})
		return
	}

	if in == "" {
		log.Fatalf("usage: %s -in slide.png [-op quality|count|edit|restore] [-points \"x,y;...\"] [-instruction text]", filepath.Base(os.Args[0]))
	}

	data, err := os.ReadFile(in)
	if err != nil {
		log.Fatal(err)
	}
	ctrl.LoadImage(data, processing.DetectMIME(data), filepath.Base(in), nil)

	if points != "" {
		pts, err := parsePoints(points)
		if err != nil {
			log.Fatalf("bad -points: %v", err)
		}
		for _, pt := range pts {
			if err := ctrl.AddSelectionPoint(pt); err != nil {
				log.Fatalf("selection: %v", err)
			}
		}
		snap := ws.Snapshot()
		if !snap.Polygon.Closed {
			log.Fatalf("selection polygon did not close; end near the first point (within %.1f units)", cfg.Selection.ClosureThreshold)
		}
	}

	ctx := context.Background()

	switch op {
	case "quality":
		quality, err := ctrl.RunQualityCheck(ctx)
		if err != nil {
			log.Fatal(err)
		}
		printJSON(quality)

	case "count":
		if _, err := ctrl.RunQualityCheck(ctx); err != nil {
			log.Fatal(err)
		}
		result, err := ctrl.RunAnalysis(ctx, func(pct int) {
			zlog.Info().Int("percent", pct).Msg("analysis progress")
		})
		if err != nil {
			log.Fatal(err)
		}
		printJSON(result)

	case "edit":
		if err := ctrl.RunEdit(ctx, instruction); err != nil {
			log.Fatal(err)
		}
		edited, mime, _ := ctrl.CurrentImage()
		if out == "" {
			out = editedName(in, mime)
		}
		if err := os.WriteFile(out, edited, 0o644); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("wrote %s\n", out)

	default:
		log.Fatalf("unknown operation %q (use quality, count, edit, or restore)", op)
	}
}

func applyFlags(cfg *config.Config, backend, url, model, storeDir, logLevel string, threshold float64, passes int) {
	if backend != "" {
		cfg.Model.Backend = backend
	}
	if url != "" {
		cfg.Model.URL = url
	}
	if model != "" {
		cfg.Model.Name = model
	}
	if storeDir != "" {
		cfg.Store.Dir = storeDir
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if threshold > 0 {
		cfg.Selection.ClosureThreshold = threshold
	}
	if passes > 0 {
		cfg.Analysis.Passes = passes
	}
}

// parsePoints parses "x,y;x,y;..." into normalized points.
func parsePoints(s string) ([]geometry.Point, error) {
	var pts []geometry.Point
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		xy := strings.SplitN(pair, ",", 2)
		if len(xy) != 2 {
			return nil, fmt.Errorf("%q is not x,y", pair)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		if err != nil {
			return nil, err
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if err != nil {
			return nil, err
		}
		if x < 0 || x > 100 || y < 0 || y > 100 {
			return nil, fmt.Errorf("point %q outside the 0-100 range", pair)
		}
		pts = append(pts, geometry.Point{X: x, Y: y})
	}
	if len(pts) == 0 {
		return nil, fmt.Errorf("no points")
	}
	return pts, nil
}

func editedName(in, mime string) string {
	ext := ".png"
	if strings.Contains(mime, "jpeg") {
		ext = ".jpg"
	} else if strings.Contains(mime, "webp") {
		ext = ".webp"
	}
	base := strings.TrimSuffix(in, filepath.Ext(in))
	return base + "_edited" + ext
}

func printJSON(v any) {
	js, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(js))
}
