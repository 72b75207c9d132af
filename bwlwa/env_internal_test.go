package bwlwa

type testEnv struct {
	BaseEnvironment
	otelExp string
}

func (e testEnv) otelExporter() string { return e.otelExp }
