package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// CommandInfo describes a slash command.
type CommandInfo struct {
	Name        string
	Usage       string
	Description string
}

// Commands lists the slash commands the TUI understands.
var Commands = []CommandInfo{
	{Name: "attach", Usage: "/attach <glob>", Description: "Stage files for the next prompt"},
	{Name: "detach", Usage: "/detach <name>", Description: "Unstage a file"},
	{Name: "open", Usage: "/open <n>", Description: "Open attachment n of the latest message with attachments"},
	{Name: "show", Usage: "/show <n>", Description: "Preview text attachment n of the latest message with attachments"},
	{Name: "copy", Usage: "/copy", Description: "Copy the last reply to the clipboard"},
	{Name: "clear", Usage: "/clear", Description: "Clear the conversation"},
	{Name: "help", Usage: "/help", Description: "Show commands"},
	{Name: "quit", Usage: "/quit", Description: "Exit"},
}

// previewLines caps /show output.
const previewLines = 12

func (m *Model) runCommand(line string) tea.Cmd {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "attach":
		if arg == "" {
			m.status = "usage: /attach <glob>"
			return nil
		}
		names, err := m.uploader.Attach(arg)
		if err != nil {
			m.status = "attach: " + err.Error()
			return nil
		}
		m.status = fmt.Sprintf("staged %d file(s): %s", len(names), strings.Join(names, ", "))

	case "detach":
		if m.uploader.Detach(arg) {
			m.status = "unstaged " + arg
		} else {
			m.status = fmt.Sprintf("%q is not staged", arg)
		}

	case "open":
		n, err := parseIndex(arg)
		if err == nil {
			err = m.list.ClickLatest(n - 1)
		}
		if err != nil {
			m.status = "open: " + err.Error()
		}

	case "show":
		n, err := parseIndex(arg)
		if err != nil {
			m.status = "show: " + err.Error()
			return nil
		}
		a, err := m.list.LatestAttachment(n - 1)
		if err != nil {
			m.status = "show: " + err.Error()
			return nil
		}
		preview, ok := m.highlighter.Preview(a, previewLines)
		if !ok {
			m.status = fmt.Sprintf("%s is not a text file; use /open %d", a.Name, n)
			return nil
		}
		m.preview = preview
		m.status = a.Name + " (esc to close)"

	case "copy":
		text, ok := m.list.LastReply(m.opts.AssistantName)
		if !ok {
			m.status = "nothing to copy"
			return nil
		}
		if err := m.copyText(text); err != nil {
			m.status = "copy: " + err.Error()
			return nil
		}
		m.status = fmt.Sprintf("copied %d characters", len(text))

	case "clear":
		if m.busy() {
			m.status = "cannot clear while a reply is streaming"
			return nil
		}
		m.list.Reset()
		m.status = "conversation cleared"

	case "help":
		var parts []string
		for _, c := range Commands {
			parts = append(parts, c.Usage)
		}
		m.status = strings.Join(parts, "  ")

	case "quit", "exit":
		return tea.Quit

	default:
		m.status = fmt.Sprintf("unknown command /%s (try /help)", name)
	}
	return nil
}
