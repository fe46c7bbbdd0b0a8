// Package render provides terminal output formatting for conversation
// listings, details, and workspace changes.
package render

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/joss/ohc/internal/api"
	"github.com/joss/ohc/internal/config"
	ohcstrings "github.com/joss/ohc/internal/strings"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
	width  int
	height int
}

// New creates a renderer sized to the attached terminal.
func New(pretty bool) *Renderer {
	w, h := terminalSize()
	return &Renderer{pretty: pretty, width: w, height: h}
}

// NewSized creates a renderer with a fixed size (for tests).
func NewSized(pretty bool, width, height int) *Renderer {
	return &Renderer{pretty: pretty, width: width, height: height}
}

func terminalSize() (int, int) {
	if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w, h
	}
	return defaultWidth, defaultHeight
}

// PageSize derives the interactive page size from terminal height,
// reserving space for header, separator, help, and prompt lines.
func (r *Renderer) PageSize() int {
	available := r.height - 10
	if available < 5 {
		available = 5
	}
	if available > 20 {
		available = 20
	}
	return available
}

// StatusIcon returns a colored marker for a conversation status.
func (r *Renderer) StatusIcon(status string) string {
	if !r.pretty {
		return "*"
	}
	switch status {
	case api.StatusRunning:
		return color.GreenString("●")
	case api.StatusStopped:
		return color.RedString("●")
	default:
		return color.YellowString("●")
	}
}

// ConversationList formats a numbered conversation listing for CLI output.
func (r *Renderer) ConversationList(convs []api.Conversation) string {
	if len(convs) == 0 {
		return "No conversations found."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d conversations:\n", len(convs))
	for i, conv := range convs {
		fmt.Fprintf(&sb, "%3d. %s %s %-8s %s\n",
			i+1,
			conv.ShortID(),
			r.StatusIcon(conv.Status),
			conv.DisplayStatus(),
			ohcstrings.Truncate(conv.DisplayTitle(), 50),
		)
	}
	return sb.String()
}

// ConversationTable formats conversations as an aligned table sized to the
// terminal width. start offsets the displayed numbering for paged views.
func (r *Renderer) ConversationTable(convs []api.Conversation, start int) string {
	if len(convs) == 0 {
		return "No conversations found."
	}

	const (
		numWidth     = 4
		idWidth      = 10
		statusWidth  = 10
		runtimeWidth = 17
	)
	minWidth := numWidth + idWidth + statusWidth + runtimeWidth + 20

	var sb strings.Builder

	if r.width < minWidth {
		// Narrow terminal: stacked rows instead of columns
		for i, conv := range convs {
			fmt.Fprintf(&sb, "%3d. %s - %s\n", start+i+1, conv.ShortID(), conv.DisplayStatus())
			fmt.Fprintf(&sb, "     %s\n", ohcstrings.Truncate(conv.DisplayTitle(), r.width-5))
		}
		return sb.String()
	}

	titleWidth := r.width - numWidth - idWidth - statusWidth - runtimeWidth - 4
	if titleWidth < 20 {
		titleWidth = 20
	}

	header := fmt.Sprintf("%*s  %-*s %-*s %-*s %s",
		numWidth-2, "#", idWidth, "ID", statusWidth, "Status", runtimeWidth, "Runtime", "Title")
	sb.WriteString(header + "\n")
	sb.WriteString(strings.Repeat("─", min(len(header), r.width-1)) + "\n")

	for i, conv := range convs {
		runtimeID := conv.RuntimeID()
		if runtimeID == "" {
			runtimeID = "─"
		}
		fmt.Fprintf(&sb, "%*d  %-*s %s %-*s %-*s %s\n",
			numWidth-2, start+i+1,
			idWidth, conv.ShortID(),
			r.StatusIcon(conv.Status),
			statusWidth-2, conv.DisplayStatus(),
			runtimeWidth, ohcstrings.TruncateNoEllipsis(runtimeID, runtimeWidth),
			ohcstrings.Truncate(conv.DisplayTitle(), titleWidth),
		)
	}
	return sb.String()
}

// ConversationDetails formats the detail view of one conversation.
func (r *Renderer) ConversationDetails(conv *api.Conversation) string {
	var sb strings.Builder

	sb.WriteString("\nConversation Details:\n")
	fmt.Fprintf(&sb, "  ID: %s\n", conv.ID)
	fmt.Fprintf(&sb, "  Title: %s\n", conv.DisplayTitle())
	fmt.Fprintf(&sb, "  Status: %s %s\n", r.StatusIcon(conv.Status), conv.DisplayStatus())
	fmt.Fprintf(&sb, "  Runtime Status: %s\n", orNA(conv.RuntimeStatus))
	fmt.Fprintf(&sb, "  Runtime ID: %s\n", orNA(conv.RuntimeID()))
	fmt.Fprintf(&sb, "  Created: %s\n", orNA(conv.CreatedAt))
	fmt.Fprintf(&sb, "  Last Updated: %s\n", orNA(conv.LastUpdatedAt))
	if conv.URL != "" {
		fmt.Fprintf(&sb, "  URL: %s\n", conv.URL)
	}
	return sb.String()
}

var changeOrder = []string{api.ChangeModified, api.ChangeAdded, api.ChangeDeleted, api.ChangeUnmerged}

var changeNames = map[string]string{
	api.ChangeModified: "Modified",
	api.ChangeAdded:    "Added",
	api.ChangeDeleted:  "Deleted",
	api.ChangeUnmerged: "Unmerged",
}

func (r *Renderer) changeHeading(status string) string {
	name, ok := changeNames[status]
	if !ok {
		name = status
	}
	if !r.pretty {
		return name
	}
	switch status {
	case api.ChangeModified:
		return color.YellowString(name)
	case api.ChangeAdded:
		return color.GreenString(name)
	case api.ChangeDeleted:
		return color.RedString(name)
	default:
		return color.MagentaString(name)
	}
}

// Changes formats workspace changes grouped by status, each group sorted
// by path.
func (r *Renderer) Changes(changes []api.FileChange) string {
	if len(changes) == 0 {
		return "No changes found. The workspace appears to be clean.\n"
	}

	groups := map[string][]string{}
	for _, ch := range changes {
		groups[ch.Status] = append(groups[ch.Status], ch.Path)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total files changed: %d\n", len(changes))
	for _, status := range changeOrder {
		paths, ok := groups[status]
		if !ok {
			continue
		}
		sort.Strings(paths)
		fmt.Fprintf(&sb, "\n%s (%d):\n", r.changeHeading(status), len(paths))
		for _, p := range paths {
			fmt.Fprintf(&sb, "  %s\n", p)
		}
	}
	return sb.String()
}

// ServerList formats configured server profiles, marking the default.
func (r *Renderer) ServerList(servers map[string]*config.Server) string {
	if len(servers) == 0 {
		return "No servers configured.\nUse 'ohc server add' to add a server."
	}

	var sb strings.Builder
	sb.WriteString("Configured servers:\n")
	for _, name := range config.Names(servers) {
		srv := servers[name]
		marker := "  "
		suffix := ""
		if srv.Default {
			marker = "* "
			suffix = " (default)"
		}
		fmt.Fprintf(&sb, "%s%-15s %s%s\n", marker, name, srv.URL, suffix)
	}
	return sb.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
