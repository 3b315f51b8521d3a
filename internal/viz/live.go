package viz

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/sfclab/internal/config"
	"github.com/san-kum/sfclab/internal/control"
	"github.com/san-kum/sfclab/internal/dynamo"
	"github.com/san-kum/sfclab/internal/plant"
	"github.com/san-kum/sfclab/internal/sim"
)

const (
	historyCapacity = 300
	graphWidth      = 60
	graphHeight     = 12
	setpointStep    = 0.1
	kickSize        = 1.0
)

type TickMsg time.Time

// Model drives a plant and controller one control period per frame.
type Model struct {
	cfg    *config.Config
	run    dynamo.Config
	plant  *plant.Linear
	ctrl   *control.SFC[uint32]
	rng    *rand.Rand
	fps    int
	now    uint32
	clock  uint64
	steps  int
	y, u   float64
	err    error
	theme  int
	paused bool
	help   bool

	outputs  []float64
	refs     []float64
	controls []float64
}

// NewModel builds the live view for cfg. fps is the frame rate; each frame
// advances the loop by one control period.
func NewModel(cfg *config.Config, fps int) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return Model{}, err
	}
	if fps <= 0 {
		fps = 30
	}
	m := Model{cfg: cfg.Clone(), run: cfg.Run(), fps: fps}
	if err := m.reset(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m *Model) reset() error {
	p, err := plant.NewLinear(m.cfg.Plant.A, m.cfg.Plant.B, m.cfg.Plant.C, m.cfg.Sim.X0)
	if err != nil {
		return err
	}
	if m.cfg.Sim.Noise > 0 {
		p.SetNoise(m.cfg.Sim.Noise, m.cfg.Sim.Seed)
	}
	ctrl, err := control.New[uint32](m.cfg.ControlModel())
	if err != nil {
		return err
	}

	m.plant, m.ctrl = p, ctrl
	m.rng = rand.New(rand.NewSource(m.cfg.Sim.Seed))
	m.now, m.clock, m.steps = m.run.StartMs, 0, 0
	m.y, m.u, m.err = 0, 0, nil
	m.outputs = make([]float64, 0, historyCapacity)
	m.refs = make([]float64, 0, historyCapacity)
	m.controls = make([]float64, 0, historyCapacity)
	m.ctrl.InitState(m.now, control.VectorOf(m.cfg.Sim.Xhat0))
	return nil
}

// retarget swaps in a controller with a new setpoint, carrying over the
// current estimate and clock.
func (m *Model) retarget(setpoint float64) error {
	model := m.cfg.ControlModel()
	model.Setpoint = setpoint
	ctrl, err := control.New[uint32](model)
	if err != nil {
		return err
	}
	ctrl.InitState(m.ctrl.LastTime(), m.ctrl.Estimate())
	m.ctrl = ctrl
	m.cfg.Setpoint = setpoint
	return nil
}

// kick adds a disturbance to the last plant state without telling the
// controller. It fails once the plant state is no longer finite.
func (m *Model) kick() error {
	x := m.plant.State()
	x[len(x)-1] += kickSize
	return m.plant.Reset(x)
}

func (m *Model) step() {
	if m.err != nil {
		return
	}

	x := m.plant.State()
	if err := sim.CheckState(x, m.run.DivergenceLimit); err != nil {
		m.err = &dynamo.SimulationError{Step: m.steps, Time: m.seconds(), State: x, Wrapped: err}
		m.paused = true
		return
	}

	interval := sim.NextInterval(m.rng, m.run)
	m.now += interval
	m.clock += uint64(interval)

	m.y = m.plant.Measure()
	m.u = m.ctrl.Update(m.y, m.now)
	m.plant.Step(m.u)
	m.steps++

	m.outputs = push(m.outputs, m.y)
	m.refs = push(m.refs, m.ctrl.Setpoint())
	m.controls = push(m.controls, m.u)
}

func push(buf []float64, v float64) []float64 {
	buf = append(buf, v)
	if len(buf) > historyCapacity {
		buf = buf[1:]
	}
	return buf
}

func (m Model) seconds() float64 { return float64(m.clock) / 1000 }

func (m Model) tick() tea.Cmd {
	return tea.Tick(time.Second/time.Duration(m.fps), func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.err == nil {
				m.paused = !m.paused
			}
		case ".":
			if m.paused {
				m.step()
			}
		case "r":
			if err := m.reset(); err != nil {
				m.err = err
			}
			m.paused = false
		case "up", "k":
			if err := m.retarget(m.cfg.Setpoint + setpointStep); err != nil {
				m.err = err
			}
		case "down", "j":
			if err := m.retarget(m.cfg.Setpoint - setpointStep); err != nil {
				m.err = err
			}
		case "d":
			if err := m.kick(); err != nil {
				m.err = err
				m.paused = true
			}
		case "t":
			m.theme = nextTheme(m.theme)
		case "?":
			m.help = !m.help
		}
	case TickMsg:
		if !m.paused {
			m.step()
		}
		return m, m.tick()
	}
	return m, nil
}

func (m Model) View() string {
	theme := Themes[m.theme]
	val := valueStyle(theme)

	status := "RUNNING"
	switch {
	case m.err != nil:
		status = "STOPPED: " + m.err.Error()
	case m.paused:
		status = "PAUSED"
	}

	var s strings.Builder
	s.WriteString(headerStyle(theme).Render(fmt.Sprintf("%s  rank %d  period %dms", m.cfg.Name, m.ctrl.Rank(), m.run.PeriodMs)))
	s.WriteString("\n")
	s.WriteString(statusStyle(theme, !m.paused, m.err != nil).Render(status))
	s.WriteString("\n\n")

	graph := "waiting for samples"
	if len(m.outputs) > 1 {
		graph = asciigraph.PlotMany([][]float64{m.outputs, m.refs},
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
			asciigraph.Caption("y (green) vs setpoint (yellow)"),
		)
	}

	row := func(label string, v float64) string {
		return labelStyle.Render(label) + val.Render(fmt.Sprintf("%10.4f", v)) + "\n"
	}
	var stats strings.Builder
	stats.WriteString(row("t [s]", m.seconds()))
	stats.WriteString(row("setpoint", m.ctrl.Setpoint()))
	stats.WriteString(row("y", m.y))
	stats.WriteString(row("u", m.u))
	stats.WriteString(row("residual", m.ctrl.Residual()))
	stats.WriteString(labelStyle.Render("dt [ms]") + val.Render(fmt.Sprintf("%10d", m.ctrl.Elapsed())) + "\n\n")

	x, xhat := m.plant.State(), m.ctrl.Estimate()
	stats.WriteString(labelStyle.Render("") + "    x          xhat\n")
	for i := range x {
		stats.WriteString(labelStyle.Render(fmt.Sprintf("x%d", i)) +
			val.Render(fmt.Sprintf("%10.4f %10.4f", x[i], xhat[i])) + "\n")
	}

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, graph, "  ", panelStyle.Render(stats.String())))
	s.WriteString("\n\n")
	s.WriteString(labelStyle.Render("u") + Sparkline(m.controls, graphWidth))
	s.WriteString("\n\n")

	if m.help {
		s.WriteString(keyHint.Render("space pause  . step  r reset  up/down setpoint  d disturb  t theme  q quit"))
	} else {
		s.WriteString(keyHint.Render("? help"))
	}
	return s.String()
}

// SetTheme selects a theme by name. Unknown names select the default.
func (m *Model) SetTheme(name string) { m.theme = themeIndex(name) }

// Run starts the live view.
func Run(cfg *config.Config, fps int, theme string) error {
	m, err := NewModel(cfg, fps)
	if err != nil {
		return err
	}
	m.SetTheme(theme)
	_, err = tea.NewProgram(m).Run()
	return err
}
