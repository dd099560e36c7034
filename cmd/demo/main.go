package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/shinyes/yep_text/pkg/store"
	ysync "github.com/shinyes/yep_text/pkg/sync"
)

type app struct {
	docKey   string
	replicas map[string]*replica
	order    []string
	tracker  *ysync.StabilityTracker
	gc       *ysync.GCCoordinator
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "可选：YAML 配置文件路径")
	dataRoot := flag.String("data", "", "数据根目录，覆盖配置文件")
	reset := flag.Bool("reset", false, "启动前重置本地数据目录")
	debug := flag.Bool("debug", false, "开启调试日志")
	scenario := flag.Bool("scenario", false, "在内存中运行内置场景后退出")
	flag.Parse()

	cfg, err := initConfig(*configPath)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}
	if *dataRoot != "" {
		cfg.Data.Root = *dataRoot
	}
	if *debug {
		cfg.Debug = true
	}
	if !cfg.Debug {
		log.SetOutput(io.Discard)
	}

	options := []store.BadgerOption{
		store.WithBadgerValueLogFileSize(cfg.Data.ValueLogFileSizeMB * 1024 * 1024),
	}
	root := cfg.Data.Root
	if *scenario {
		options = append(options, store.WithBadgerInMemory())
		if root, err = os.MkdirTemp("", "yep_text_scenario"); err != nil {
			return err
		}
		defer os.RemoveAll(root)
	} else if *reset {
		if err := os.RemoveAll(root); err != nil {
			return err
		}
	}

	stores := store.NewMultiStore(root, options...)
	defer stores.CloseAll()

	application, err := newApp(stores, cfg)
	if err != nil {
		return err
	}
	if *scenario {
		return runScenario(application)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	application.gc.Start(ctx)
	defer application.gc.Stop()

	printBanner(application, root)
	printHelp()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit, err := handleCommand(application, line)
		if err != nil {
			fmt.Printf("错误: %v\n", err)
		}
		if quit {
			break
		}
	}

	return scanner.Err()
}

func newApp(stores *store.MultiStore, cfg *demoConfig) (*app, error) {
	tracker := ysync.NewStabilityTracker()
	application := &app{
		docKey:   cfg.Document,
		replicas: make(map[string]*replica, len(cfg.Replicas)),
		tracker:  tracker,
		gc:       ysync.NewGCCoordinator(tracker, ysync.WithGCInterval(cfg.GC.Interval)),
	}

	for _, name := range cfg.Replicas {
		if _, ok := application.replicas[name]; ok {
			return nil, fmt.Errorf("duplicate replica %q", name)
		}
		r, err := openReplica(stores, name, cfg.Document)
		if err != nil {
			return nil, err
		}
		application.replicas[name] = r
		application.order = append(application.order, name)
		application.tracker.Join(r.doc.ActorID())
		application.gc.Register(r.doc)
	}
	return application, nil
}

func (a *app) replica(name string) (*replica, error) {
	r, ok := a.replicas[name]
	if !ok {
		return nil, fmt.Errorf("未知副本 %q，可选: %s", name, strings.Join(a.order, ", "))
	}
	return r, nil
}
