package config

// Config is the top-level configuration parsed from docfactory YAML.
type Config struct {
	Agent    Agent    `yaml:"agent"`
	Pipeline Pipeline `yaml:"pipeline"`
	Renderer Renderer `yaml:"renderer"`
	Site     Site     `yaml:"site"`
	Analysis Analysis `yaml:"analysis"`
}

// Agent configures the external documentation agent binary.
type Agent struct {
	Binary  string `yaml:"binary"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// Pipeline tunes the step/retry/wait behaviour of the generation run.
type Pipeline struct {
	MaxRetries     int    `yaml:"max_retries"`
	RetryBackoff   string `yaml:"retry_backoff"`
	PollInterval   string `yaml:"poll_interval"`
	EarlyFailAfter string `yaml:"early_fail_after"`
	StallTicks     int    `yaml:"stall_ticks"`
	WaitTimeout    string `yaml:"wait_timeout"`
	FallbackTasks  int    `yaml:"fallback_tasks"`
}

// Renderer configures the external diagram renderer CLI.
type Renderer struct {
	Binary     string `yaml:"binary"`
	Theme      string `yaml:"theme"`
	Background string `yaml:"background"`
	Scale      int    `yaml:"scale"`
	Timeout    string `yaml:"timeout"`
}

// Site configures the external static-site builder CLI.
type Site struct {
	Binary  string `yaml:"binary"`
	Name    string `yaml:"name"`
	Timeout string `yaml:"timeout"`
}

// Analysis tunes the multi-repository analysis fan-out.
type Analysis struct {
	Workers int `yaml:"workers"`
}
