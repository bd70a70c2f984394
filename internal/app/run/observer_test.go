package run

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/John-Robertt/gifgrid/internal/config"
	"github.com/John-Robertt/gifgrid/internal/domain"
	"github.com/John-Robertt/gifgrid/internal/grid"
	"github.com/John-Robertt/gifgrid/internal/testutil"
)

type recordObserver struct {
	startCalls int
	startTotal int
	phases     []string
	items      []string
	fields     map[string]map[string]any
}

func (o *recordObserver) OnStart(eff config.EffectiveConfig, total int) {
	o.startCalls++
	o.startTotal = total
}

func (o *recordObserver) OnPhaseDone(input, name string, fields map[string]any, dur time.Duration) {
	o.phases = append(o.phases, name)
	if o.fields == nil {
		o.fields = map[string]map[string]any{}
	}
	o.fields[name] = fields
}

func (o *recordObserver) OnItemDone(idx, total int, res domain.ItemResult, dur time.Duration) {
	o.items = append(o.items, res.Status)
}

func TestExecuteWithObserver_EmitsPhaseAndItemEvents(t *testing.T) {
	root := t.TempDir()
	in := filepath.Join(root, "anim.gif")
	testutil.WriteGIF(t, in, 8, 8,
		testutil.Solid(testutil.Red),
		testutil.Solid(testutil.Red),
		testutil.Solid(testutil.Blue),
	)

	obs := &recordObserver{}
	rr := ExecuteWithObserver(context.Background(), config.EffectiveConfig{
		Input:   in,
		Output:  filepath.Join(root, "g.jpg"),
		Hash:    "blake3",
		CellFit: grid.FitResize,
	}, nil, obs)
	require.True(t, rr.OK())

	assert.Equal(t, 1, obs.startCalls)
	assert.Equal(t, 1, obs.startTotal)
	assert.Equal(t, []string{"extract", "dedup", "compose"}, obs.phases)
	assert.Equal(t, []string{domain.StatusProcessed}, obs.items)
	assert.Equal(t, 3, obs.fields["extract"]["frames"])
	assert.Equal(t, 1, obs.fields["dedup"]["removed"])
	assert.Equal(t, 2, obs.fields["dedup"]["kept"])
	assert.Equal(t, 2, obs.fields["compose"]["placed"])
}
