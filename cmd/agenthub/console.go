package main

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	orchestration "github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core"
	"github.com/DXC-Lab-Linkage/ai-agent-sample-hub/core/research"
)

var (
	userStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	assistantStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	statusStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
	researchStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	citationStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Underline(true)
)

// console renders streamed conversation output. Text deltas for one speaker
// are written on a single line until the speaker changes or a status line
// breaks the flow.
type console struct {
	mu          sync.Mutex
	currentRole orchestration.Role
	midLine     bool
}

func (c *console) AppendText(role orchestration.Role, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.midLine && c.currentRole != role {
		fmt.Println()
		c.midLine = false
	}
	if !c.midLine {
		label := assistantStyle.Render("assistant")
		if role == orchestration.RoleUser {
			label = userStyle.Render("you")
		}
		fmt.Printf("%s: ", label)
		c.currentRole = role
	}
	fmt.Print(text)
	c.midLine = true
}

func (c *console) AppendAudioChunk(audio []byte) {
	// Text-only frontend; audio output is configured off and anything that
	// slips through is dropped.
}

func (c *console) SetStatus(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakLine()
	fmt.Println(statusStyle.Render("[" + status + "]"))
}

func (c *console) Interrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breakLine()
	fmt.Println(statusStyle.Render("[interrupted]"))
}

func (c *console) breakLine() {
	if c.midLine {
		fmt.Println()
		c.midLine = false
	}
}

// research returns a view of the console for research output, rendered
// distinctly from conversation text.
func (c *console) research() research.Sink {
	return &researchView{console: c}
}

type researchView struct {
	console *console
}

func (v *researchView) AppendText(text string) {
	v.console.mu.Lock()
	defer v.console.mu.Unlock()
	v.console.breakLine()
	fmt.Println(researchStyle.Render(text))
}

func (v *researchView) SetStatus(status string) {
	v.console.SetStatus(status)
}

func (v *researchView) AppendCitations(citations []research.Citation) {
	v.console.mu.Lock()
	defer v.console.mu.Unlock()
	v.console.breakLine()
	fmt.Println(researchStyle.Render("sources:"))
	for i, citation := range citations {
		line := fmt.Sprintf("  [%d] %s", i+1, citation.Title)
		if citation.Title != citation.URI {
			line += " " + citationStyle.Render(citation.URI)
		} else {
			line = fmt.Sprintf("  [%d] %s", i+1, citationStyle.Render(citation.URI))
		}
		fmt.Println(line)
	}
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, statusStyle.Render(fmt.Sprintf(format, args...)))
}

func helpText() string {
	return strings.Join([]string{
		"type a message and press enter to talk to the assistant",
		"/research <query>  start a deep-research job",
		"/cancel <job-id>   cancel a research job",
		"/state             show the current turn state",
		"/quit              exit",
	}, "\n")
}
