package main

import (
	"fmt"
)

// runScenario 在前两个副本上演示并发插入、计数器类型提升以及墓碑回收。
// 删除之后每个副本都要再生成两轮 Change，删除才会稳定。
func runScenario(application *app) error {
	a := application.replicas[application.order[0]]
	b := application.replicas[application.order[1]]

	steps := []struct {
		title string
		run   func() error
	}{
		{"创建文本和计数器", func() error { return createElements(a) }},
		{"同步", func() error { return syncAll(application) }},
		{a.name + " 输入 AB", func() error { return editText(a, 0, 0, "AB") }},
		{"同步", func() error { return syncAll(application) }},
		{a.name + " 在开头插入 X", func() error { return editText(a, 0, 0, "X") }},
		{b.name + " 在末尾插入 Y", func() error { return editText(b, 2, 2, "Y") }},
		{a.name + " 计数器 +5", func() error { return increaseCounter(a, 5) }},
		{b.name + " 计数器 +3.14", func() error { return increaseCounter(b, 3.14) }},
		{"同步", func() error { return syncAll(application) }},
		{b.name + " 删除 AB", func() error { return editText(b, 1, 3, "") }},
		{"同步", func() error { return syncAll(application) }},
		{a.name + " 选中全部", func() error { return selectText(a, 0, 2) }},
		{"同步", func() error { return syncAll(application) }},
		{"所有副本移动光标", func() error { return moveCursors(application, 0) }},
		{"同步", func() error { return syncAll(application) }},
		{"所有副本移动光标", func() error { return moveCursors(application, 1) }},
		{"同步", func() error { return syncAll(application) }},
	}

	for i, step := range steps {
		fmt.Printf("[%d] %s\n", i+1, step.title)
		if err := step.run(); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.title, err)
		}
	}
	showAll(application)

	removed := application.gc.RunOnce()
	fmt.Printf("回收 %d 个墓碑节点，%s 的稳定点 %s\n", removed, a.name, application.tracker.Stable(a.doc))
	showAll(application)

	if a.doc.Marshal() != b.doc.Marshal() {
		return fmt.Errorf("副本未收敛: %s vs %s", a.doc.Marshal(), b.doc.Marshal())
	}
	fmt.Println("副本已收敛")
	return nil
}

func moveCursors(application *app, offset int) error {
	for _, name := range application.order {
		if err := selectText(application.replicas[name], offset, offset); err != nil {
			return err
		}
	}
	return nil
}
