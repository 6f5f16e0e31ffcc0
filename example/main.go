// Command example runs a tiny two-player land to demonstrate join, an
// action handler, event emission, and per-player sync over two explicit
// ticks. Syncs and events go to a NopTransport and are not printed; the
// program prints only the tick headers and the final tick counter.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	landkeeper "github.com/landkeeper/core"
	"go.uber.org/zap"
)

// campState is a hand-written StateNode, standing in for what a
// field-metadata generator would emit from a .schema file.
type campState struct {
	changes *landkeeper.ChangeSet
	schema  *landkeeper.Schema

	round   int64
	phase   string
	scores  map[string]interface{}
}

var campSchema = landkeeper.NewSchemaBuilder("Camp").
	Int64("round", landkeeper.Broadcast()).
	String("phase", landkeeper.Broadcast()).
	Map("scores", landkeeper.TypeInt64, nil, landkeeper.Broadcast()).
	Build()

func newCampState() *campState {
	return &campState{
		changes: landkeeper.NewChangeSet(),
		schema:  campSchema,
		scores:  make(map[string]interface{}),
	}
}

func (c *campState) Schema() *landkeeper.Schema     { return c.schema }
func (c *campState) Changes() *landkeeper.ChangeSet { return c.changes }
func (c *campState) ClearChanges()                  { c.changes.Clear() }
func (c *campState) MarkAllDirty()                  { c.changes.MarkAll(c.schema.MaxIndex()) }

func (c *campState) FieldValue(index uint8) interface{} {
	switch index {
	case 0:
		return c.round
	case 1:
		return c.phase
	case 2:
		return c.scores
	default:
		return nil
	}
}

func (c *campState) SetRound(v int64) {
	c.round = v
	c.changes.Mark(0, landkeeper.OpSet)
}

func (c *campState) SetPhase(v string) {
	c.phase = v
	c.changes.Mark(1, landkeeper.OpSet)
}

func (c *campState) SetScore(player string, value int64) {
	c.scores[player] = value
	c.changes.Mark(2, landkeeper.OpSet)
}

func main() {
	logger, _ := landkeeper.NewDevelopmentLogger()
	defer logger.Sync()

	state := newCampState()
	state.SetRound(1)
	state.SetPhase("lobby")
	state.MarkAllDirty()

	def, err := landkeeper.NewLandDefinition("Camp", campSchema, 50*time.Millisecond)
	if err != nil {
		logger.Fatal("definition", zap.Error(err))
	}
	def.RegisterAction("setScore", func(lc *landkeeper.LandContext, player landkeeper.PlayerID, payload json.RawMessage, outputs landkeeper.ResolverOutputs) error {
		var body struct{ Score int64 }
		if err := json.Unmarshal(payload, &body); err != nil {
			return err
		}
		state.SetScore(string(player), body.Score)
		return lc.EmitEvent(landkeeper.AllPlayers(), "ScoreChanged", map[string]interface{}{
			"player": player, "score": body.Score,
		})
	})

	keeper := landkeeper.NewLandKeeper("camp-1", def, state, landkeeper.NopTransport{}, logger)

	ctx := context.Background()
	for _, p := range []landkeeper.PlayerID{"alice", "bob"} {
		if err := keeper.Join(ctx, p, landkeeper.NewClientID(), landkeeper.NewSessionID()); err != nil {
			logger.Fatal("join", zap.Error(err))
		}
	}

	fmt.Println("--- tick 1: first sync ---")
	if err := keeper.StepOnce(ctx); err != nil {
		logger.Fatal("step", zap.Error(err))
	}

	payload, _ := json.Marshal(map[string]int64{"Score": 10})
	future, err := keeper.SubmitAction(ctx, "alice", landkeeper.ActionEnvelope{Type: "setScore", Payload: payload})
	if err != nil {
		logger.Fatal("submit", zap.Error(err))
	}

	fmt.Println("--- tick 2: score change ---")
	if err := keeper.StepOnce(ctx); err != nil {
		logger.Fatal("step", zap.Error(err))
	}
	if err := future.Wait(ctx); err != nil {
		logger.Fatal("setScore action failed", zap.Error(err))
	}

	fmt.Printf("tick counter is now %d\n", keeper.Tick())
}
