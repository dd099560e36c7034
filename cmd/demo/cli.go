package main

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shinyes/yep_text/pkg/crdt"
	"github.com/shinyes/yep_text/pkg/document"
)

const (
	textKey    = "text"
	counterKey = "count"
)

func printBanner(application *app, dataRoot string) {
	fmt.Println("yep_text 协同文本 Demo")
	fmt.Printf("文档:      %s\n", application.docKey)
	fmt.Printf("数据目录:  %s\n", dataRoot)
	for _, name := range application.order {
		fmt.Printf("副本 %-8s actor=%s\n", name, application.replicas[name].doc.ActorID())
	}
}

func printHelp() {
	fmt.Println("\n命令：")
	fmt.Println("  help")
	fmt.Println("  create <replica>")
	fmt.Println("  edit <replica> <from> <to> [text]")
	fmt.Println("  select <replica> <from> <to>")
	fmt.Println("  inc <replica> <n>")
	fmt.Println("  sync [<from> <to>]")
	fmt.Println("  show")
	fmt.Println("  gc")
	fmt.Println("  snapshot <replica>")
	fmt.Println("  stats")
	fmt.Println("  quit")
	fmt.Println("\n快速开始：")
	fmt.Println("  create alice / sync / edit alice 0 0 AB / sync")
	fmt.Println("  edit alice 0 0 X / edit bob 2 2 Y / sync / show")
}

func handleCommand(application *app, line string) (bool, error) {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return false, nil
	}

	cmd := strings.ToLower(parts[0])

	switch cmd {
	case "help":
		printHelp()
		return false, nil

	case "create":
		if len(parts) != 2 {
			return false, errors.New("用法: create <replica>")
		}
		r, err := application.replica(parts[1])
		if err != nil {
			return false, err
		}
		if err := createElements(r); err != nil {
			return false, err
		}
		fmt.Println("成功")
		return false, nil

	case "edit":
		if len(parts) < 4 {
			return false, errors.New("用法: edit <replica> <from> <to> [text]")
		}
		r, from, to, err := parseRangeArgs(application, parts)
		if err != nil {
			return false, err
		}
		if err := editText(r, from, to, strings.Join(parts[4:], " ")); err != nil {
			return false, err
		}
		fmt.Printf("%s: %q\n", r.name, textOf(r))
		return false, nil

	case "select":
		if len(parts) != 4 {
			return false, errors.New("用法: select <replica> <from> <to>")
		}
		r, from, to, err := parseRangeArgs(application, parts)
		if err != nil {
			return false, err
		}
		if err := selectText(r, from, to); err != nil {
			return false, err
		}
		fmt.Println("成功")
		return false, nil

	case "inc":
		if len(parts) != 3 {
			return false, errors.New("用法: inc <replica> <n>")
		}
		r, err := application.replica(parts[1])
		if err != nil {
			return false, err
		}
		delta, err := parseNumber(parts[2])
		if err != nil {
			return false, err
		}
		if err := increaseCounter(r, delta); err != nil {
			return false, err
		}
		fmt.Println("成功")
		return false, nil

	case "sync":
		switch len(parts) {
		case 1:
			return false, syncAll(application)
		case 3:
			from, err := application.replica(parts[1])
			if err != nil {
				return false, err
			}
			to, err := application.replica(parts[2])
			if err != nil {
				return false, err
			}
			n, err := from.pushTo(to)
			if err != nil {
				return false, err
			}
			fmt.Printf("%s -> %s: 应用 %d 个 Change\n", from.name, to.name, n)
			return false, nil
		default:
			return false, errors.New("用法: sync [<from> <to>]")
		}

	case "show":
		showAll(application)
		return false, nil

	case "gc":
		for _, name := range application.order {
			r := application.replicas[name]
			fmt.Printf("%s 稳定点 %s\n", name, application.tracker.Stable(r.doc))
		}
		fmt.Printf("回收 %d 个墓碑节点\n", application.gc.RunOnce())
		return false, nil

	case "snapshot":
		if len(parts) != 2 {
			return false, errors.New("用法: snapshot <replica>")
		}
		r, err := application.replica(parts[1])
		if err != nil {
			return false, err
		}
		if err := r.snapshot(); err != nil {
			return false, err
		}
		fmt.Printf("%s: 快照已保存 (seq=%d)\n", r.name, r.seq)
		return false, nil

	case "stats":
		stats := application.gc.GetStats()
		keys := make([]string, 0, len(stats))
		for k := range stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %-18s %v\n", k, stats[k])
		}
		return false, nil

	case "quit", "exit":
		return true, nil

	default:
		return false, fmt.Errorf("未知命令: %s", cmd)
	}
}

func createElements(r *replica) error {
	return r.update(func(root *document.Object) error {
		root.SetNewText(textKey, "")
		_, err := root.SetNewCounter(counterKey, 0)
		return err
	}, "create")
}

func editText(r *replica, from, to int, content string) error {
	return r.update(func(root *document.Object) error {
		text, err := root.GetText(textKey)
		if err != nil {
			return err
		}
		_, err = text.Edit(from, to, content)
		return err
	}, "edit")
}

func selectText(r *replica, from, to int) error {
	return r.update(func(root *document.Object) error {
		text, err := root.GetText(textKey)
		if err != nil {
			return err
		}
		_, err = text.Select(from, to)
		return err
	}, "select")
}

func increaseCounter(r *replica, delta any) error {
	return r.update(func(root *document.Object) error {
		counter, err := root.GetCounter(counterKey)
		if err != nil {
			return err
		}
		_, err = counter.Increase(delta)
		return err
	}, "increase")
}

// syncAll 在所有副本之间两两推送，直到没有新的 Change。
func syncAll(application *app) error {
	for {
		total := 0
		for _, fromName := range application.order {
			for _, toName := range application.order {
				if fromName == toName {
					continue
				}
				n, err := application.replicas[fromName].pushTo(application.replicas[toName])
				if err != nil {
					return err
				}
				total += n
			}
		}
		if total == 0 {
			break
		}
	}
	fmt.Println("已同步")
	return nil
}

func showAll(application *app) {
	for _, name := range application.order {
		r := application.replicas[name]
		fmt.Printf("%-8s %s  墓碑=%d  版本=%s\n", name, r.doc.Marshal(), r.doc.TombstoneCount(), r.doc.VersionVector())

		_ = r.doc.ReadText(textKey, func(text *crdt.Text) {
			for _, other := range application.order {
				actorID := application.replicas[other].doc.ActorID()
				if from, to, ok := text.SelectionRange(actorID); ok {
					fmt.Printf("         选区 %s: %d-%d\n", other, from, to)
				}
			}
		})
	}
}

func textOf(r *replica) string {
	var content string
	_ = r.doc.ReadText(textKey, func(text *crdt.Text) {
		content = text.String()
	})
	return content
}

func parseRangeArgs(application *app, parts []string) (*replica, int, int, error) {
	r, err := application.replica(parts[1])
	if err != nil {
		return nil, 0, 0, err
	}
	from, err := strconv.Atoi(parts[2])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("无效的 from: %w", err)
	}
	to, err := strconv.Atoi(parts[3])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("无效的 to: %w", err)
	}
	return r, from, to, nil
}

// parseNumber 解析整数或浮点数，整数保持整数语义。
func parseNumber(raw string) (any, error) {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("无效的数值 %q", raw)
	}
	return f, nil
}
