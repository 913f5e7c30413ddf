package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type State int

const (
	StateStart State = iota
	StateConnecting
	StateTransferring
	StateVerifying
	StateDone
	StateError
)

type Role int

const (
	RoleSender Role = iota
	RoleReceiver
)

// Messages
type StatusMsg string
type ErrorMsg error
type ProgressMsg struct {
	SentBytes  int64
	TotalBytes int64
	Speed      float64       // bytes per second
	ETA        time.Duration // estimated time remaining
	Protocol   string        // e.g. "TCP"
}

// VerifiedMsg reports the outcome of the receiver's post-write signature
// check against the re-hashed artifact.
type VerifiedMsg struct {
	OK       bool
	Artifact string
}

type Model struct {
	Role          Role
	State         State
	Filename      string
	Fingerprint   string
	Address       string
	Spinner       spinner.Model
	TotalProgress progress.Model
	FileProgress  progress.Model
	Speed         string
	ETA           string
	Protocol      string
	Status        string
	VerifiedOK    bool
	Err           error
	Exit          bool
}

func NewModel(role Role, filename, fingerprint string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorSecondary)

	pTotal := progress.New(
		progress.WithGradient(string(ColorPrimary), string(ColorSecondary)),
		progress.WithWidth(40),
	)
	pFile := progress.New(
		progress.WithGradient("#00FF00", "#00FFFF"),
		progress.WithWidth(40),
	)

	return Model{
		Role:          role,
		State:         StateStart,
		Filename:      filename,
		Fingerprint:   fingerprint,
		Spinner:       s,
		TotalProgress: pTotal,
		FileProgress:  pFile,
		Speed:         "0 MB/s",
		ETA:           "Calculating...",
		Protocol:      "Initializing...",
	}
}

func (m Model) Init() tea.Cmd {
	return m.Spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyEsc {
			m.Exit = true
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		newTotal, cmdTotal := m.TotalProgress.Update(msg)
		newFile, cmdFile := m.FileProgress.Update(msg)
		m.TotalProgress = newTotal.(progress.Model)
		m.FileProgress = newFile.(progress.Model)
		return m, tea.Batch(cmdTotal, cmdFile)

	case StatusMsg:
		m.Status = string(msg)
		if m.State == StateStart {
			m.State = StateConnecting
		}

	case ProgressMsg:
		m.State = StateTransferring
		ratio := float64(msg.SentBytes) / float64(msg.TotalBytes)

		cmdTotal := m.TotalProgress.SetPercent(ratio)
		cmdFile := m.FileProgress.SetPercent(ratio)

		m.Speed = fmt.Sprintf("%.2f MB/s", msg.Speed/1024/1024)
		m.ETA = msg.ETA.Round(time.Second).String()
		m.Protocol = msg.Protocol

		if ratio >= 1.0 && m.Role == RoleSender {
			m.State = StateDone
			return m, tea.Quit
		}
		if ratio >= 1.0 {
			m.State = StateVerifying
		}

		return m, tea.Batch(cmdTotal, cmdFile)

	case VerifiedMsg:
		m.VerifiedOK = msg.OK
		m.State = StateDone
		return m, tea.Quit

	case ErrorMsg:
		m.State = StateError
		m.Err = msg
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) View() string {
	if m.Err != nil {
		return ContainerStyle.Render(
			lipgloss.JoinVertical(lipgloss.Left,
				ErrorStyle.Render("Error Occurred"),
				fmt.Sprintf("%v", m.Err),
			),
		)
	}

	var content string

	switch m.State {
	case StateStart, StateConnecting:
		header := BannerStyle.Render("PAX")

		info := ""
		if m.Role == RoleSender {
			info = ViewFingerprint(m.Fingerprint)
		} else {
			info = FingerprintStyle.Render(">> LISTENING <<\n>> WAITING FOR SENDER... <<")
		}

		status := FingerprintStyle.Render(fmt.Sprintf(">> %s", m.Status))

		content = lipgloss.JoinVertical(lipgloss.Center, header, info, m.Spinner.View(), status)

	case StateTransferring, StateVerifying:
		title := "Transfer In Progress"
		if m.State == StateVerifying {
			title = "Verifying Signature..."
		}
		header := TitleStyle.Render(title)

		telemetry := lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.JoinVertical(lipgloss.Left,
				StatLabelStyle.Render("SPEED"),
				StatValueStyle.Render(m.Speed),
			),
			lipgloss.NewStyle().Width(4).Render(""),
			lipgloss.JoinVertical(lipgloss.Left,
				StatLabelStyle.Render("ETA"),
				StatValueStyle.Render(m.ETA),
			),
			lipgloss.NewStyle().Width(4).Render(""),
			lipgloss.JoinVertical(lipgloss.Left,
				StatLabelStyle.Render("PROTOCOL"),
				StatValueStyle.Render(m.Protocol),
			),
		)

		bars := lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.JoinHorizontal(lipgloss.Bottom, StatLabelStyle.Render("Total Session"), m.TotalProgress.View()),
			" ",
			lipgloss.JoinHorizontal(lipgloss.Bottom, StatLabelStyle.Render("Current File "), m.FileProgress.View()),
		)

		content = lipgloss.JoinVertical(lipgloss.Center, header, telemetry, " ", bars)

	case StateDone:
		if m.Role == RoleReceiver {
			if m.VerifiedOK {
				content = VerifiedStyle.Render("Signature verified — transfer complete!")
			} else {
				content = ErrorStyle.Render("Signature mismatch — artifact discarded.")
			}
		} else {
			content = TitleStyle.Render("Transfer Complete!")
		}
	}

	return ContainerStyle.Render(content)
}
