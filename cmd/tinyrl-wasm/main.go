//go:build js && wasm

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"syscall/js"

	"github.com/google/uuid"

	"tabular-rl-go/internal/engine"
)

// bridge owns the single training run the page can have in flight.
type bridge struct {
	mu      sync.Mutex
	cancel  context.CancelFunc
	handler js.Value
}

// payload is what the page receives per snapshot, parsed from JSON.
type payload struct {
	engine.Snapshot
	Error string `json:"error,omitempty"`
}

func main() {
	b := &bridge{}
	js.Global().Set("tinyrlRegisterSnapshotHandler", js.FuncOf(b.register))
	js.Global().Set("tinyrlStartTraining", js.FuncOf(b.start))
	js.Global().Set("tinyrlStopTraining", js.FuncOf(b.stop))
	select {}
}

func (b *bridge) register(_ js.Value, args []js.Value) any {
	if len(args) != 1 || args[0].Type() != js.TypeFunction {
		return jsError("tinyrlRegisterSnapshotHandler expects a function")
	}
	b.mu.Lock()
	b.handler = args[0]
	b.mu.Unlock()
	return nil
}

// start decodes a JSON engine.Config and streams snapshots to the handler.
// It returns an error string to the caller instead of throwing.
func (b *bridge) start(_ js.Value, args []js.Value) any {
	if len(args) == 0 {
		return jsError("tinyrlStartTraining expects a JSON config string")
	}
	var cfg engine.Config
	if err := json.Unmarshal([]byte(args[0].String()), &cfg); err != nil {
		return jsError(fmt.Sprintf("invalid config: %v", err))
	}
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	trainer, err := engine.NewTrainer(cfg)
	if err != nil {
		return jsError(fmt.Sprintf("invalid config: %v", err))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.handler.IsUndefined() || b.handler.IsNull() {
		return jsError("snapshot handler not registered")
	}
	if b.cancel != nil {
		b.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	handler := b.handler

	go func() {
		for snapshot := range trainer.Run(ctx) {
			msg, err := encode(snapshot)
			if err != nil {
				fmt.Printf("tinyrl: encode snapshot: %v\n", err)
				continue
			}
			handler.Invoke(js.Global().Get("JSON").Call("parse", msg))
		}
	}()
	return js.ValueOf(cfg.RunID)
}

func (b *bridge) stop(js.Value, []js.Value) any {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
	return nil
}

func encode(snapshot engine.Snapshot) (string, error) {
	p := payload{Snapshot: snapshot}
	if snapshot.Err != nil {
		p.Error = snapshot.Err.Error()
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func jsError(msg string) js.Value {
	return js.ValueOf(map[string]any{"error": msg})
}
