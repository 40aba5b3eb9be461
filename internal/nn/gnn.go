// Package nn implements the message-passing network, its optimizer, and the
// learning-rate schedule used for training. Everything is plain float64
// math with explicit forward and backward passes.
package nn

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/biromiro/swgnn/internal/graph"
)

// Config fixes the model dimensionality. All dims must be >= 1.
type Config struct {
	InputDim  int
	EdgeDim   int
	HiddenDim int
	OutputDim int
	NumLayers int
	Seed      int64
}

// Param is one learnable weight block with its gradient. Biases use Rows=1.
type Param struct {
	Name string
	Rows int
	Cols int
	W    []float64
	G    []float64
}

func newParam(name string, rows, cols int) *Param {
	return &Param{
		Name: name,
		Rows: rows,
		Cols: cols,
		W:    make([]float64, rows*cols),
		G:    make([]float64, rows*cols),
	}
}

func (p *Param) zeroGrad() {
	for i := range p.G {
		p.G[i] = 0
	}
}

// linear is a fully connected transform y = x*W + b.
type linear struct {
	in, out int
	w       *Param
	b       *Param
}

func newLinear(name string, in, out int, rng *rand.Rand) *linear {
	l := &linear{
		in:  in,
		out: out,
		w:   newParam(name+".w", in, out),
		b:   newParam(name+".b", 1, out),
	}
	// Glorot uniform
	limit := math.Sqrt(6.0 / float64(in+out))
	for i := range l.w.W {
		l.w.W[i] = (rng.Float64()*2 - 1) * limit
	}
	return l
}

func (l *linear) forward(x [][]float64) [][]float64 {
	y := make([][]float64, len(x))
	for i, row := range x {
		out := make([]float64, l.out)
		copy(out, l.b.W)
		for k, v := range row {
			if v == 0 {
				continue
			}
			wr := l.w.W[k*l.out : (k+1)*l.out]
			for j, w := range wr {
				out[j] += v * w
			}
		}
		y[i] = out
	}
	return y
}

// backward accumulates weight gradients from dy and returns dx. x must be
// the same input that produced dy's forward pass.
func (l *linear) backward(x, dy [][]float64) [][]float64 {
	dx := make([][]float64, len(x))
	for i, row := range x {
		d := dy[i]
		for j, g := range d {
			l.b.G[j] += g
		}
		dr := make([]float64, l.in)
		for k, v := range row {
			wr := l.w.W[k*l.out : (k+1)*l.out]
			gr := l.w.G[k*l.out : (k+1)*l.out]
			sum := 0.0
			for j, g := range d {
				gr[j] += v * g
				sum += g * wr[j]
			}
			dr[k] = sum
		}
		dx[i] = dr
	}
	return dx
}

// mpLayer is one message-passing step: each node combines a linear self
// transform with the mean of linear messages computed from its incoming
// neighbors' states concatenated with the edge attributes.
type mpLayer struct {
	hidden  int
	edgeDim int
	self    *linear
	msg     *linear
}

func newMPLayer(name string, hidden, edgeDim int, rng *rand.Rand) *mpLayer {
	return &mpLayer{
		hidden:  hidden,
		edgeDim: edgeDim,
		self:    newLinear(name+".self", hidden, hidden, rng),
		msg:     newLinear(name+".msg", hidden+edgeDim, hidden, rng),
	}
}

type mpCache struct {
	h     [][]float64 // layer input
	msgIn [][]float64 // per-edge concatenated (h[src], attr)
	z     [][]float64 // preactivation
	deg   []int       // incoming edge count per node
}

func (l *mpLayer) forward(g *graph.Graph, h [][]float64) ([][]float64, *mpCache) {
	n := len(h)
	deg := make([]int, n)
	for _, e := range g.EdgeIndex {
		deg[e[1]]++
	}

	msgIn := make([][]float64, g.NumEdges())
	for ei, e := range g.EdgeIndex {
		row := make([]float64, l.hidden+l.edgeDim)
		copy(row, h[e[0]])
		copy(row[l.hidden:], g.EdgeAttr[ei])
		msgIn[ei] = row
	}
	msgOut := l.msg.forward(msgIn)

	z := l.self.forward(h)
	for ei, e := range g.EdgeIndex {
		d := e[1]
		scale := 1.0 / float64(deg[d])
		for j, v := range msgOut[ei] {
			z[d][j] += v * scale
		}
	}

	next := make([][]float64, n)
	for i, row := range z {
		out := make([]float64, len(row))
		for j, v := range row {
			if v > 0 {
				out[j] = v
			}
		}
		next[i] = out
	}
	return next, &mpCache{h: h, msgIn: msgIn, z: z, deg: deg}
}

func (l *mpLayer) backward(g *graph.Graph, c *mpCache, dh [][]float64) [][]float64 {
	dz := make([][]float64, len(dh))
	for i, row := range dh {
		d := make([]float64, len(row))
		for j, v := range row {
			if c.z[i][j] > 0 {
				d[j] = v
			}
		}
		dz[i] = d
	}

	dhPrev := l.self.backward(c.h, dz)

	dMsgOut := make([][]float64, g.NumEdges())
	for ei, e := range g.EdgeIndex {
		d := e[1]
		scale := 1.0 / float64(c.deg[d])
		row := make([]float64, l.hidden)
		for j, v := range dz[d] {
			row[j] = v * scale
		}
		dMsgOut[ei] = row
	}
	dMsgIn := l.msg.backward(c.msgIn, dMsgOut)
	for ei, e := range g.EdgeIndex {
		s := e[0]
		for j := 0; j < l.hidden; j++ {
			dhPrev[s][j] += dMsgIn[ei][j]
		}
	}
	return dhPrev
}

// GNN encodes node features into a hidden state, applies NumLayers
// message-passing steps conditioned on edge attributes, and decodes a
// per-node prediction.
type GNN struct {
	cfg    Config
	enc    *linear
	layers []*mpLayer
	dec    *linear
	cache  *forwardCache
}

type forwardCache struct {
	g      *graph.Graph
	x      [][]float64
	encZ   [][]float64
	hs     [][][]float64 // hs[0] is the encoder output, hs[l] the l-th layer output
	mp     []*mpCache
	hFinal [][]float64
}

// New constructs the model, failing loudly on non-positive dimensions.
func New(cfg Config) (*GNN, error) {
	dims := []struct {
		name string
		v    int
	}{
		{"input dim", cfg.InputDim},
		{"edge dim", cfg.EdgeDim},
		{"hidden dim", cfg.HiddenDim},
		{"output dim", cfg.OutputDim},
		{"num layers", cfg.NumLayers},
	}
	for _, d := range dims {
		if d.v < 1 {
			return nil, fmt.Errorf("nn: %s must be >= 1, got %d", d.name, d.v)
		}
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	m := &GNN{
		cfg: cfg,
		enc: newLinear("encoder", cfg.InputDim, cfg.HiddenDim, rng),
		dec: newLinear("decoder", cfg.HiddenDim, cfg.OutputDim, rng),
	}
	for l := 0; l < cfg.NumLayers; l++ {
		m.layers = append(m.layers, newMPLayer(fmt.Sprintf("layer%d", l), cfg.HiddenDim, cfg.EdgeDim, rng))
	}
	return m, nil
}

func (m *GNN) Config() Config {
	return m.cfg
}

// Forward computes per-node predictions for the (possibly batched) graph
// and retains the activations needed by Backward.
func (m *GNN) Forward(g *graph.Graph) ([][]float64, error) {
	if g.InputDim() != m.cfg.InputDim {
		return nil, fmt.Errorf("nn: graph has %d node features, model expects %d", g.InputDim(), m.cfg.InputDim)
	}
	if g.EdgeDim() != m.cfg.EdgeDim {
		return nil, fmt.Errorf("nn: graph has %d edge features, model expects %d", g.EdgeDim(), m.cfg.EdgeDim)
	}

	c := &forwardCache{g: g, x: g.X}
	c.encZ = m.enc.forward(g.X)
	h := make([][]float64, len(c.encZ))
	for i, row := range c.encZ {
		out := make([]float64, len(row))
		for j, v := range row {
			if v > 0 {
				out[j] = v
			}
		}
		h[i] = out
	}
	c.hs = append(c.hs, h)

	for _, layer := range m.layers {
		var mc *mpCache
		h, mc = layer.forward(g, h)
		c.hs = append(c.hs, h)
		c.mp = append(c.mp, mc)
	}
	c.hFinal = h
	m.cache = c

	return m.dec.forward(h), nil
}

// Backward accumulates parameter gradients for the output gradient of the
// most recent Forward call.
func (m *GNN) Backward(dOut [][]float64) error {
	c := m.cache
	if c == nil {
		return fmt.Errorf("nn: Backward called before Forward")
	}
	if len(dOut) != len(c.hFinal) {
		return fmt.Errorf("nn: gradient has %d rows, forward produced %d", len(dOut), len(c.hFinal))
	}

	dh := m.dec.backward(c.hFinal, dOut)
	for l := len(m.layers) - 1; l >= 0; l-- {
		dh = m.layers[l].backward(c.g, c.mp[l], dh)
	}

	dz := make([][]float64, len(dh))
	for i, row := range dh {
		d := make([]float64, len(row))
		for j, v := range row {
			if c.encZ[i][j] > 0 {
				d[j] = v
			}
		}
		dz[i] = d
	}
	m.enc.backward(c.x, dz)
	m.cache = nil
	return nil
}

// Params returns every learnable block in a stable order.
func (m *GNN) Params() []*Param {
	params := []*Param{m.enc.w, m.enc.b}
	for _, l := range m.layers {
		params = append(params, l.self.w, l.self.b, l.msg.w, l.msg.b)
	}
	return append(params, m.dec.w, m.dec.b)
}

func (m *GNN) ZeroGrad() {
	for _, p := range m.Params() {
		p.zeroGrad()
	}
}

// StateDict copies every parameter into a name-keyed map.
func (m *GNN) StateDict() map[string][]float64 {
	state := make(map[string][]float64)
	for _, p := range m.Params() {
		w := make([]float64, len(p.W))
		copy(w, p.W)
		state[p.Name] = w
	}
	return state
}

// LoadStateDict restores parameters from a StateDict snapshot. Every block
// must be present with a matching size.
func (m *GNN) LoadStateDict(state map[string][]float64) error {
	for _, p := range m.Params() {
		w, ok := state[p.Name]
		if !ok {
			return fmt.Errorf("nn: state is missing parameter %q", p.Name)
		}
		if len(w) != len(p.W) {
			return fmt.Errorf("nn: parameter %q has %d values, model expects %d", p.Name, len(w), len(p.W))
		}
		copy(p.W, w)
	}
	return nil
}
