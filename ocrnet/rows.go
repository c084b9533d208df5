package ocrnet

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anyvec"
)

// rowSeq views a batch of row-major tensors as a batch of
// sequences, where each tensor row is one timestep.
//
// The input is pooled so that back-propagation through
// the input happens once, no matter how many timesteps
// there are.
type rowSeq struct {
	In   anydiff.Res
	Pool *anydiff.Var
	Res  anyseq.Seq
}

// RowSeq splits a batch of tensors, each with the given
// number of rows, into sequences of rows.
//
// The input length must be divisible by batch*rows.
func RowSeq(in anydiff.Res, batch, rows int) anyseq.Seq {
	total := in.Output().Len()
	if batch == 0 || rows == 0 || total%(batch*rows) != 0 {
		panic("input size not divisible into rows")
	}
	rowSize := total / (batch * rows)
	imgSize := rows * rowSize

	pool := anydiff.NewVar(in.Output())
	steps := make([]*anyseq.ResBatch, rows)
	for t := range steps {
		parts := make([]anydiff.Res, batch)
		present := make([]bool, batch)
		for i := range parts {
			start := i*imgSize + t*rowSize
			parts[i] = anydiff.Slice(pool, start, start+rowSize)
			present[i] = true
		}
		steps[t] = &anyseq.ResBatch{Packed: anydiff.Concat(parts...), Present: present}
	}
	return &rowSeq{
		In:   in,
		Pool: pool,
		Res:  anyseq.ResSeq(in.Output().Creator(), steps),
	}
}

func (r *rowSeq) Creator() anyvec.Creator {
	return r.In.Output().Creator()
}

func (r *rowSeq) Output() []*anyseq.Batch {
	return r.Res.Output()
}

func (r *rowSeq) Vars() anydiff.VarSet {
	return r.In.Vars()
}

func (r *rowSeq) Propagate(u []*anyseq.Batch, g anydiff.Grad) {
	if !g.Intersects(r.In.Vars()) {
		return
	}
	g[r.Pool] = r.Pool.Vector.Creator().MakeVector(r.Pool.Vector.Len())
	r.Res.Propagate(u, g)
	downstream := g[r.Pool]
	delete(g, r.Pool)
	r.In.Propagate(downstream, g)
}
