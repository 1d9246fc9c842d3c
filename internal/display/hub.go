package display

import (
	"sync"

	"latemate_console/internal/logger"
	"latemate_console/internal/models"
)

// Envelope types streamed to browsers.
const (
	TypeMeasurement = "measurement"
	TypeScatter     = "scatter"
	TypeBackground  = "background"
	TypeStatus      = "status"
	TypeCanvas      = "canvas"
	TypeCalibration = "calibration"
)

// Envelope is one message on the browser stream.
type Envelope struct {
	Type  string `json:"type"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

// CanvasOp is one drawing instruction for the calibration surface.
type CanvasOp struct {
	Op    string       `json:"op"` // fill | rect | marker
	Color models.Color `json:"color,omitempty"`
	Rect  *models.Rect `json:"rect,omitempty"`
	X     int          `json:"x,omitempty"`
	Y     int          `json:"y,omitempty"`
}

// Hub fans display updates out to every connected browser. It remembers the
// latest envelope of each type, plus the canvas ops since the last fill, so a
// late subscriber can redraw everything.
type Hub struct {
	width, height int
	log           *logger.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]chan Envelope
	last   map[string]Envelope
	canvas []CanvasOp
}

func NewHub(width, height int, log *logger.Logger) *Hub {
	return &Hub{
		width:  width,
		height: height,
		log:    logger.OrNop(log).Named("display"),
		subs:   make(map[int]chan Envelope),
		last:   make(map[string]Envelope),
	}
}

// Subscribe returns a buffered stream and its cancel func. Slow subscribers
// lose envelopes instead of blocking the publisher.
func (h *Hub) Subscribe(buf int) (<-chan Envelope, func()) {
	ch := make(chan Envelope, buf)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Snapshot returns what a new subscriber needs to catch up.
func (h *Hub) Snapshot() []Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]Envelope, 0, len(h.last)+len(h.canvas))
	for _, typ := range []string{TypeStatus, TypeBackground, TypeMeasurement, TypeScatter, TypeCalibration} {
		if env, ok := h.last[typ]; ok {
			out = append(out, env)
		}
	}
	for _, op := range h.canvas {
		out = append(out, Envelope{Type: TypeCanvas, Data: op})
	}
	return out
}

func (h *Hub) publish(env Envelope) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if env.Type != TypeCanvas {
		h.last[env.Type] = env
	}
	for id, ch := range h.subs {
		select {
		case ch <- env:
		default:
			h.log.Debugw("display_envelope_dropped", "subscriber", id, "type", env.Type)
		}
	}
}

func (h *Hub) ShowMeasurement(v models.MeasurementView) {
	h.publish(Envelope{Type: TypeMeasurement, Data: v})
}

func (h *Hub) ShowScatter(v models.ScatterView) {
	h.publish(Envelope{Type: TypeScatter, Data: v})
}

func (h *Hub) ShowBackground(percent []float64) {
	h.publish(Envelope{Type: TypeBackground, Data: percent})
}

func (h *Hub) ShowStatus(v models.StatusView) {
	h.publish(Envelope{Type: TypeStatus, Data: v})
}

func (h *Hub) ShowCalibration(v models.CalibrationView) {
	h.publish(Envelope{Type: TypeCalibration, Data: v})
}

func (h *Hub) Size() (int, int) { return h.width, h.height }

func (h *Hub) Fill(c models.Color) {
	op := CanvasOp{Op: "fill", Color: c}
	h.mu.Lock()
	h.canvas = append(h.canvas[:0], op)
	h.mu.Unlock()
	h.publish(Envelope{Type: TypeCanvas, Data: op})
}

func (h *Hub) FillRect(r models.Rect, c models.Color) {
	op := CanvasOp{Op: "rect", Color: c, Rect: &r}
	h.mu.Lock()
	h.canvas = append(h.canvas, op)
	h.mu.Unlock()
	h.publish(Envelope{Type: TypeCanvas, Data: op})
}

func (h *Hub) Marker(x, y int) {
	op := CanvasOp{Op: "marker", X: x, Y: y}
	h.mu.Lock()
	h.canvas = append(h.canvas, op)
	h.mu.Unlock()
	h.publish(Envelope{Type: TypeCanvas, Data: op})
}
