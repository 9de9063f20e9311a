/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"labelpress/internal/config"
	"labelpress/internal/crash"
	"labelpress/internal/domain"
	"labelpress/internal/jobs"
	applog "labelpress/internal/log"
	"labelpress/internal/presets"
	"labelpress/internal/render"
	"labelpress/internal/sink"
	"labelpress/internal/storage"
	"labelpress/internal/version"
)

func usage() {
	fmt.Println("LabelPress — label template designer and print engine")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  labelpress version|-v|--version                     Show version")
	fmt.Println("  labelpress init <dir>                               Create a template workspace at <dir>")
	fmt.Println("  labelpress templates <dir>                          List templates in the workspace")
	fmt.Println("  labelpress duplicate <dir> <id> [name]              Duplicate a template")
	fmt.Println("  labelpress delete <dir> <id>                        Delete a template (default is protected)")
	fmt.Println("  labelpress presets [category]                       List built-in label presets")
	fmt.Println("  labelpress add-preset <dir> <preset-id>             Add a preset to the workspace")
	fmt.Println("  labelpress export <dir> <bundle.json> [id ...]      Export templates as a bundle")
	fmt.Println("  labelpress import <dir> <bundle.json> [policy]      Import a bundle (skip|replace|rename)")
	fmt.Println("  labelpress render <dir> <id> <out.png> [data.json]  Render a template preview to PNG")
	fmt.Println("  labelpress print <dir> <id> <records.json> [copies] Print records through the configured sink")
	fmt.Println("  labelpress jobs <dir>                               Show print job history")
}

func main() {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var cat *storage.Catalog
	defer func() { crash.Recover(cat) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("LabelPress — label template designer and print engine")
		fmt.Println(version.String())
		return

	case "init":
		if len(args) < 3 {
			fmt.Println("init requires <dir>")
			usage()
			os.Exit(2)
		}
		abs, _ := filepath.Abs(args[2])
		l.Info("init workspace", slog.String("root", abs))
		c, err := storage.InitCatalog(abs)
		if err != nil {
			fail(l, "init failed", err)
		}
		cat = c
		fmt.Println("Created workspace at", abs)
		fmt.Printf("Templates: %d\n", len(c.Templates))
		return

	case "templates":
		if len(args) < 3 {
			fmt.Println("templates requires <dir>")
			usage()
			os.Exit(2)
		}
		c := openCatalog(l, args[2])
		cat = c
		for _, t := range c.ListTemplates() {
			mark := " "
			if t.IsDefault {
				mark = "*"
			}
			fmt.Printf("%s %-28s %-30s %gx%g mm, %d fields\n", mark, t.ID, t.Name, t.Width, t.Height, len(t.Fields))
		}
		return

	case "duplicate":
		if len(args) < 4 {
			fmt.Println("duplicate requires <dir> and <id>")
			usage()
			os.Exit(2)
		}
		c := openCatalog(l, args[2])
		cat = c
		name := ""
		if len(args) > 4 {
			name = args[4]
		}
		dup, err := c.DuplicateTemplate(args[3], name)
		if err != nil {
			fail(l, "duplicate failed", err)
		}
		fmt.Printf("Duplicated as %s (%s)\n", dup.Name, dup.ID)
		return

	case "delete":
		if len(args) < 4 {
			fmt.Println("delete requires <dir> and <id>")
			usage()
			os.Exit(2)
		}
		c := openCatalog(l, args[2])
		cat = c
		if err := c.DeleteTemplate(args[3]); err != nil {
			fail(l, "delete failed", err)
		}
		fmt.Println("Deleted", args[3])
		return

	case "presets":
		var (
			list []presets.Preset
			err  error
		)
		if len(args) > 2 {
			list, err = presets.ByCategory(args[2])
		} else {
			list, err = presets.List()
		}
		if err != nil {
			fail(l, "presets failed", err)
		}
		for _, p := range list {
			fmt.Printf("%-18s %-24s %-10s %gx%g mm  %s\n", p.ID, p.Name, p.Category, p.Width, p.Height, p.Description)
		}
		return

	case "add-preset":
		if len(args) < 4 {
			fmt.Println("add-preset requires <dir> and <preset-id>")
			usage()
			os.Exit(2)
		}
		c := openCatalog(l, args[2])
		cat = c
		tpl, err := presets.Instantiate(args[3])
		if err != nil {
			fail(l, "preset failed", err)
		}
		if err := c.SaveTemplate(tpl); err != nil {
			fail(l, "save failed", err)
		}
		fmt.Printf("Added %s (%s)\n", tpl.Name, tpl.ID)
		return

	case "export":
		if len(args) < 4 {
			fmt.Println("export requires <dir> and <bundle.json>")
			usage()
			os.Exit(2)
		}
		c := openCatalog(l, args[2])
		cat = c
		var ids []string
		if len(args) > 4 {
			ids = args[4:]
		}
		b, err := c.ExportBundle(ids)
		if err != nil {
			fail(l, "export failed", err)
		}
		data, err := json.MarshalIndent(b, "", "  ")
		if err != nil {
			fail(l, "export failed", err)
		}
		if err := os.WriteFile(args[3], append(data, '\n'), 0o644); err != nil {
			fail(l, "export failed", err)
		}
		fmt.Printf("Exported %d template(s) to %s\n", len(b.Templates), args[3])
		return

	case "import":
		if len(args) < 4 {
			fmt.Println("import requires <dir> and <bundle.json>")
			usage()
			os.Exit(2)
		}
		c := openCatalog(l, args[2])
		cat = c
		policy := storage.DuplicateSkip
		if len(args) > 4 {
			switch strings.ToLower(args[4]) {
			case "skip":
				policy = storage.DuplicateSkip
			case "replace":
				policy = storage.DuplicateReplace
			case "rename":
				policy = storage.DuplicateRename
			default:
				fmt.Println("policy must be skip, replace or rename")
				os.Exit(2)
			}
		}
		raw, err := os.ReadFile(args[3])
		if err != nil {
			fail(l, "import failed", err)
		}
		res, err := c.ImportBundle(raw, policy)
		if err != nil {
			fail(l, "import failed", err)
		}
		fmt.Printf("Imported %d, skipped %d, replaced %d, renamed %d\n", res.Imported, res.Skipped, res.Replaced, res.Renamed)
		return

	case "render":
		if len(args) < 5 {
			fmt.Println("render requires <dir>, <id> and <out.png>")
			usage()
			os.Exit(2)
		}
		c := openCatalog(l, args[2])
		cat = c
		tpl, err := c.GetTemplate(args[3])
		if err != nil {
			fail(l, "render failed", err)
		}
		order := sampleOrder()
		if len(args) > 5 {
			raw, err := os.ReadFile(args[5])
			if err != nil {
				fail(l, "read data failed", err)
			}
			if err := json.Unmarshal(raw, &order); err != nil {
				fail(l, "parse data failed", err)
			}
		}
		data := domain.GenerateLabelData(order).Tree()
		doc := render.RenderTemplate(tpl, data, 0)
		if err := render.WritePNG(doc, args[4]); err != nil {
			fail(l, "write png failed", err)
		}
		fmt.Println("Wrote", args[4])
		return

	case "print":
		if len(args) < 5 {
			fmt.Println("print requires <dir>, <id> and <records.json>")
			usage()
			os.Exit(2)
		}
		copies := 1
		if len(args) > 5 {
			n, err := strconv.Atoi(args[5])
			if err != nil || n < 1 {
				fmt.Println("copies must be a positive number")
				os.Exit(2)
			}
			copies = n
		}
		c := openCatalog(l, args[2])
		cat = c
		runPrint(l, c, args[3], args[4], copies)
		return

	case "jobs":
		if len(args) < 3 {
			fmt.Println("jobs requires <dir>")
			usage()
			os.Exit(2)
		}
		jl, err := storage.InitOrOpenJobs(args[2])
		if err != nil {
			fail(l, "open job history failed", err)
		}
		defer jl.Close()
		list, err := jl.ListJobs(context.Background())
		if err != nil {
			fail(l, "list jobs failed", err)
		}
		for _, j := range list {
			line := fmt.Sprintf("%-24s %-10s %-28s %d record(s) x%d", j.ID, j.Status, j.TemplateID, len(j.RecordIDs), j.Copies)
			if j.Error != "" {
				line += "  error: " + j.Error
			}
			fmt.Println(line)
		}
		return
	}

	usage()
}

func openCatalog(l *slog.Logger, dir string) *storage.Catalog {
	abs, _ := filepath.Abs(dir)
	c, err := storage.OpenCatalog(abs)
	if err != nil {
		fail(l, "open workspace failed", err)
	}
	return c
}

// runPrint wires template catalog, job history, record data and the sink
// chosen by configuration, then runs one job to completion.
func runPrint(l *slog.Logger, c *storage.Catalog, templateID, recordsPath string, copies int) {
	cfg, token, err := config.Load()
	if err != nil {
		fail(l, "load config failed", err)
	}

	raw, err := os.ReadFile(recordsPath)
	if err != nil {
		fail(l, "read records failed", err)
	}
	var orders []map[string]any
	if err := json.Unmarshal(raw, &orders); err != nil {
		fail(l, "parse records failed", err)
	}
	if len(orders) == 0 {
		fail(l, "print failed", fmt.Errorf("no records in %s", recordsPath))
	}
	byID := make(map[string]domain.LabelData, len(orders))
	ids := make([]string, 0, len(orders))
	for i, o := range orders {
		d := domain.GenerateLabelData(o)
		id := d.OrderID
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		byID[id] = d
		ids = append(ids, id)
	}

	s, cleanup, err := buildSink(cfg, token, c.Root)
	if err != nil {
		fail(l, "configure sink failed", err)
	}
	defer cleanup()

	jl, err := storage.InitOrOpenJobs(c.Root)
	if err != nil {
		fail(l, "open job history failed", err)
	}
	defer jl.Close()

	orch, err := jobs.New(c, jl, func(_ context.Context, recordID string) (domain.LabelData, error) {
		d, ok := byID[recordID]
		if !ok {
			return domain.LabelData{}, fmt.Errorf("record %s: %w", recordID, domain.ErrNotFound)
		}
		return d, nil
	}, s)
	if err != nil {
		fail(l, "configure print engine failed", err)
	}

	ctx := context.Background()
	job, err := orch.CreateJob(ctx, templateID, ids, copies)
	if err != nil {
		fail(l, "create job failed", err)
	}
	settings := domain.DefaultPrintSettings()
	settings.Copies = copies
	done, err := orch.Start(ctx, job.ID, settings)
	if err != nil {
		fail(l, "start job failed", err)
	}
	final := <-done
	switch final.Status {
	case domain.JobCompleted:
		fmt.Printf("Job %s completed: %d record(s) x%d copies via %s\n", final.ID, len(final.RecordIDs), final.Copies, cfg.Print.Sink)
	default:
		fmt.Printf("Job %s %s: %s\n", final.ID, final.Status, final.Error)
		os.Exit(1)
	}
}

// buildSink maps the configured sink name onto a concrete implementation.
func buildSink(cfg config.AppConfig, token, root string) (sink.Sink, func(), error) {
	noop := func() {}
	switch cfg.Print.Sink {
	case "", "pdf":
		out := cfg.Print.PDFOutDir
		if !filepath.IsAbs(out) {
			out = filepath.Join(root, out)
		}
		return &sink.PDF{OutDir: out}, noop, nil
	case "zpl":
		if cfg.Print.ZPLDevice == "" {
			return &sink.ZPL{W: os.Stdout, DPI: cfg.Print.ZPLDPI}, noop, nil
		}
		f, err := os.OpenFile(cfg.Print.ZPLDevice, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, noop, fmt.Errorf("open zpl device: %w", err)
		}
		return &sink.ZPL{W: f, DPI: cfg.Print.ZPLDPI}, func() { _ = f.Close() }, nil
	case "spool":
		if cfg.Spool.URL == "" {
			return nil, noop, fmt.Errorf("spool sink selected but no spool url configured")
		}
		return &sink.Spool{URL: cfg.Spool.URL, Token: token, Timeout: cfg.Spool.Timeout()}, noop, nil
	}
	return nil, noop, fmt.Errorf("unknown print sink %q", cfg.Print.Sink)
}

// sampleOrder is the demo record used when render gets no data file.
func sampleOrder() map[string]any {
	return map[string]any{
		"id":          "order-0001",
		"orderNumber": "ORD-2025-001",
		"customerName": "Jane Smith",
		"shippingAddress": map[string]any{
			"street":  "123 Main St",
			"city":    "Springfield",
			"state":   "IL",
			"zipCode": "62701",
		},
		"priority":             "high",
		"totalAmount":          42.50,
		"expectedDeliveryDate": "2025-03-01",
		"items": []any{
			map[string]any{"productName": "Widget", "quantity": 2, "specifications": "blue"},
		},
		"orderType": "retail",
	}
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}
