package mcp

// ListSignalsInput defines the input for the list_signals tool.
type ListSignalsInput struct {
	VCDPath string `json:"vcd_path" jsonschema:"Path to the VCD file"`
}

// SearchSignalsInput defines the input for the search_signals tool.
type SearchSignalsInput struct {
	VCDPath string `json:"vcd_path" jsonschema:"Path to the VCD file"`
	Pattern string `json:"pattern" jsonschema:"Regular expression matched anywhere in each signal name"`
}

// SignalListOutput is returned by list_signals and search_signals.
type SignalListOutput struct {
	Signals []string `json:"signals" jsonschema:"Signal identifiers, sorted"`
	Count   int      `json:"count" jsonschema:"Number of signals returned"`
}

// SignalValuesInput defines the input for the signal_values tool.
type SignalValuesInput struct {
	VCDPath      string   `json:"vcd_path" jsonschema:"Path to the VCD file"`
	Signals      []string `json:"signals" jsonschema:"Signal names to tabulate; leaf names expand to every matching instance"`
	Format       string   `json:"format,omitempty" jsonschema:"Result shape: markdown (row table) or json (name to values mapping)"`
	Mode         string   `json:"mode,omitempty" jsonschema:"Name resolution: strict fails on unknown names, tolerant reports them as not found"`
	DropTrailing *bool    `json:"drop_trailing,omitempty" jsonschema:"Treat the last time marker as end of capture rather than a step"`
}

// SignalValuesOutput defines the output for the signal_values tool.
// Table is set for markdown results, Values for json results.
type SignalValuesOutput struct {
	Format    string         `json:"format" jsonschema:"Result shape that was produced"`
	Table     string         `json:"table,omitempty" jsonschema:"Markdown table, one row per signal and one column per step"`
	Values    map[string]any `json:"values,omitempty" jsonschema:"Signal name to its values, or the string 'not found'"`
	Order     []string       `json:"order" jsonschema:"Signal names in resolution order"`
	Times     []int64        `json:"times" jsonschema:"Simulation time of each step"`
	Timescale string         `json:"timescale,omitempty" jsonschema:"Trace timescale, e.g. 1ns"`
	Missing   []string       `json:"missing" jsonschema:"Requested names that matched no signal"`
}
