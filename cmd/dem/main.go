// Command dem boots a no-MMU RISC-V Linux kernel on an emulated rv64ima
// machine with a serial console and a simple framebuffer.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"gopkg.in/yaml.v3"

	"github.com/sivansh11/dem/internal/console"
	"github.com/sivansh11/dem/internal/display"
	"github.com/sivansh11/dem/internal/soc"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "dem: %v\n", err)
		os.Exit(1)
	}
}

// config is the optional YAML override file.
type config struct {
	// RAMSizeMB overrides the profile's RAM size.
	RAMSizeMB uint64 `yaml:"ram_size_mb"`
	// ExtraBootargs is appended to the generated kernel command line.
	ExtraBootargs string `yaml:"extra_bootargs"`
	// FramebufferPNG enables the display, writing frames to this file.
	FramebufferPNG string `yaml:"framebuffer_png"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func run() error {
	debug := flag.Bool("debug", false, "Enable debug logging")
	configPath := flag.String("config", "", "Optional YAML config file")
	fbPath := flag.String("fb", "", "Write framebuffer frames to this PNG file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [flags] <kernel-image> [initrd-image]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Boot a no-MMU RISC-V Linux kernel.\n\n")
		fmt.Fprintf(os.Stderr, "Without an initrd the kernel is loaded at 0x0 with 128 MiB of RAM.\n")
		fmt.Fprintf(os.Stderr, "With an initrd it is loaded at 0x80000000 with 1 GiB and a PLIC.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr,
			&slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	args := flag.Args()
	if len(args) < 1 || len(args) > 2 {
		flag.Usage()
		return fmt.Errorf("kernel image required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	if cfg.FramebufferPNG != "" && *fbPath == "" {
		*fbPath = cfg.FramebufferPNG
	}

	kernel, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read kernel: %w", err)
	}

	var initrd []byte
	if len(args) == 2 {
		initrd, err = os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("read initrd: %w", err)
		}
	}

	opts := soc.Options{
		ExtraBootargs: cfg.ExtraBootargs,
	}
	if initrd != nil {
		opts.RAMBase = 0x80000000
		opts.RAMSize = 1024 * 1024 * 1024
		opts.EnablePLIC = true
	} else {
		opts.RAMBase = 0
		opts.RAMSize = 128 * 1024 * 1024
	}
	if cfg.RAMSizeMB != 0 {
		opts.RAMSize = cfg.RAMSizeMB * 1024 * 1024
	}

	con, err := console.Open()
	if err != nil {
		return err
	}
	defer con.Restore()
	opts.Output = con
	opts.Input = con

	board, err := soc.New(opts)
	if err != nil {
		return err
	}
	if err := board.Boot(kernel, initrd); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		cancel()
	}()

	var surface display.Surface
	if *fbPath != "" {
		surface = display.NewPNGSurface(*fbPath)
	}
	displayDone := make(chan error, 1)
	go func() {
		displayDone <- display.Run(ctx, board.FB, surface)
	}()

	runErr := board.Run(ctx)
	cancel()
	if err := <-displayDone; err != nil && runErr == nil {
		runErr = fmt.Errorf("display: %w", err)
	}

	return runErr
}
