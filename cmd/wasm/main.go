//go:build js && wasm

// Command wasm exposes the vehicle simulation to the browser via WebAssembly.
// After loading, it registers global JavaScript functions:
//
//	runSimulation(jsonString) -> jsonString
//	listPresets() -> [name, ...]
//
// The input and output are the scenario and log JSON used by the CLI.
package main

import (
	"syscall/js"

	"github.com/cxd309/vds-engine/internal/sim"
	"github.com/cxd309/vds-engine/internal/vehicle"
)

func main() {
	js.Global().Set("runSimulation", js.FuncOf(runSimulation))
	js.Global().Set("listPresets", js.FuncOf(listPresets))
	select {} // keep the WASM module alive until the page is closed
}

func runSimulation(_ js.Value, args []js.Value) any {
	if len(args) < 1 {
		return map[string]any{"error": "no input provided"}
	}

	result, err := sim.RunJSON(args[0].String())
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return result
}

func listPresets(_ js.Value, _ []js.Value) any {
	names := []any{}
	for _, p := range vehicle.Presets() {
		names = append(names, string(p))
	}
	return names
}
