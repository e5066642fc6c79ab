// File: backend/internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

const (
	nichesConfigFilename           = "niches.config.json"
	DefaultSystemAPIKeyPlaceholder = "SET_A_REAL_KEY_IN_CONFIG_OR_ENV_7c3f9a1b4e2d8f60"

	DefaultProbeRateLimitRPS   = 5.0
	DefaultProbeRateLimitBurst = 3
)

// AppConfig is the fully-resolved runtime configuration.
type AppConfig struct {
	Server    ServerConfig
	Verifier  VerifierConfig
	DNSCheck  DNSCheckConfig
	Scheduler SchedulerConfig
	Outreach  OutreachConfig
	Logging   LoggingConfig
	Niches    []NicheSet

	loadedFromPath string
}

func (ac *AppConfig) GetLoadedFromPath() string { return ac.loadedFromPath }

type ServerConfig struct {
	Port   string `json:"port"`
	APIKey string `json:"apiKey"`
}

type LoggingConfig struct {
	Level string `json:"level"`
}

// VerifierConfig controls the HTTP probe used for submission-capability checks.
type VerifierConfig struct {
	UserAgents              []string
	DefaultHeaders          map[string]string
	RequestTimeout          time.Duration
	MaxRedirects            int
	MaxBodyBytes            int64
	ProbeGuestPostPaths     []string
	MaxConcurrentGoroutines int
	RateLimitRPS            float64
	RateLimitBurst          int
}

// DNSCheckConfig controls the DNS liveness probe that precedes HTTP verification.
type DNSCheckConfig struct {
	Resolvers          []string
	UseSystemResolvers bool
	QueryTimeout       time.Duration
}

// SchedulerConfig controls the outreach sweeps and follow-up policy.
type SchedulerConfig struct {
	SweepInterval        time.Duration
	RevalidationInterval time.Duration
	RevalidationMaxAge   time.Duration
	WorkerCount          int
	ResearchWorkers      int
	ResearchQueueSize    int
	ResearchMaxAttempts  int
	MaxFollowUps         int
}

// OutreachConfig holds outreach policy knobs that are deliberately explicit
// rather than hardcoded.
type OutreachConfig struct {
	AllowBlacklistRecontact bool
	RecentEmailsLimit       int
}

// NicheRule is a single keyword rule used for niche inference and topic
// relevance. Type is "string" or "regex"; CompiledRegex is populated at load.
type NicheRule struct {
	Pattern       string         `json:"pattern"`
	Type          string         `json:"type"`
	CaseSensitive bool           `json:"caseSensitive"`
	CompiledRegex *regexp.Regexp `json:"-"`
}

// NicheSet groups the rules that identify one niche (e.g. "technology").
type NicheSet struct {
	Niche string      `json:"niche"`
	Rules []NicheRule `json:"rules"`
}

// AppConfigJSON is the on-disk shape of the main config file. Durations are
// expressed in seconds/minutes/days to keep the file human-editable.
type AppConfigJSON struct {
	Server    ServerConfig        `json:"server"`
	Verifier  VerifierConfigJSON  `json:"verifier"`
	DNSCheck  DNSCheckConfigJSON  `json:"dnsCheck"`
	Scheduler SchedulerConfigJSON `json:"scheduler"`
	Outreach  OutreachConfigJSON  `json:"outreach"`
	Logging   LoggingConfig       `json:"logging"`
}

type VerifierConfigJSON struct {
	UserAgents              []string          `json:"userAgents"`
	DefaultHeaders          map[string]string `json:"defaultHeaders"`
	RequestTimeoutSeconds   int               `json:"requestTimeoutSeconds"`
	MaxRedirects            int               `json:"maxRedirects"`
	MaxBodyBytes            int64             `json:"maxBodyBytes"`
	ProbeGuestPostPaths     []string          `json:"probeGuestPostPaths"`
	MaxConcurrentGoroutines int               `json:"maxConcurrentGoroutines,omitempty"`
	RateLimitRPS            float64           `json:"rateLimitRps,omitempty"`
	RateLimitBurst          int               `json:"rateLimitBurst,omitempty"`
}

type DNSCheckConfigJSON struct {
	Resolvers           []string `json:"resolvers"`
	UseSystemResolvers  bool     `json:"useSystemResolvers"`
	QueryTimeoutSeconds int      `json:"queryTimeoutSeconds"`
}

type SchedulerConfigJSON struct {
	SweepIntervalMinutes        int `json:"sweepIntervalMinutes"`
	RevalidationIntervalMinutes int `json:"revalidationIntervalMinutes"`
	RevalidationMaxAgeDays      int `json:"revalidationMaxAgeDays"`
	WorkerCount                 int `json:"workerCount"`
	ResearchWorkers             int `json:"researchWorkers"`
	ResearchQueueSize           int `json:"researchQueueSize"`
	ResearchMaxAttempts         int `json:"researchMaxAttempts"`
	MaxFollowUps                int `json:"maxFollowUps"`
}

type OutreachConfigJSON struct {
	AllowBlacklistRecontact bool `json:"allowBlacklistRecontact"`
	RecentEmailsLimit       int  `json:"recentEmailsLimit"`
}

// LoadNicheSets loads niche keyword rule sets from the configuration directory
// and pre-compiles regex rules. A missing file is not an error; the built-in
// defaults are used instead.
func LoadNicheSets(configDir string) ([]NicheSet, error) {
	filePath := filepath.Join(configDir, nichesConfigFilename)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			log.Printf("Config: Niche rules file '%s' not found. Using built-in niche sets.", filePath)
			return DefaultNicheSets(), nil
		}
		return nil, fmt.Errorf("failed to read niche rules file '%s': %w", filePath, err)
	}
	var sets []NicheSet
	if err := json.Unmarshal(data, &sets); err != nil {
		return nil, fmt.Errorf("error unmarshalling niche rules from '%s': %w", filePath, err)
	}
	CompileNicheRules(sets)
	log.Printf("Config: Loaded %d niche sets from '%s'", len(sets), filePath)
	return sets, nil
}

// CompileNicheRules pre-compiles regex rules in place. Rules that fail to
// compile are logged and skipped at match time.
func CompileNicheRules(sets []NicheSet) {
	for i, set := range sets {
		for j, rule := range set.Rules {
			if strings.ToLower(rule.Type) != "regex" {
				continue
			}
			pattern := rule.Pattern
			if pattern == "" {
				log.Printf("Config Warning: Niche set '%s' rule %d has empty regex pattern. Skipping compilation.", set.Niche, j)
				continue
			}
			if !rule.CaseSensitive {
				pattern = "(?i)" + pattern
			}
			compiled, err := regexp.Compile(pattern)
			if err != nil {
				log.Printf("Config Warning: Failed to compile niche regex for set '%s' (pattern: '%s'): %v. Rule will be skipped.", set.Niche, rule.Pattern, err)
				sets[i].Rules[j].CompiledRegex = nil
				continue
			}
			sets[i].Rules[j].CompiledRegex = compiled
		}
	}
}

// Load reads the main config file, falling back to defaults (and saving them)
// when the file is missing or partially unparseable.
func Load(mainConfigPath string) (*AppConfig, error) {
	if mainConfigPath == "" {
		mainConfigPath = "config.json"
		log.Printf("Config: Main config path empty, using default: %s", mainConfigPath)
	}
	log.Printf("Config: Attempting to load main config from: %s", mainConfigPath)

	appCfgJSON := DefaultAppConfigJSON()
	var originalLoadError error

	data, err := os.ReadFile(mainConfigPath)
	if err != nil {
		originalLoadError = err
		if os.IsNotExist(err) {
			log.Printf("Config: Main config file '%s' not found. Using defaults and attempting to save.", mainConfigPath)
			if saveErr := SaveStructured(appCfgJSON, mainConfigPath); saveErr != nil {
				log.Printf("Config: Failed to save default config file '%s': %v", mainConfigPath, saveErr)
			}
		} else {
			log.Printf("Config: Error reading main config '%s': %v. Using defaults.", mainConfigPath, err)
		}
	} else {
		if errUnmarshal := json.Unmarshal(data, &appCfgJSON); errUnmarshal != nil {
			log.Printf("Config: Error unmarshalling main config '%s': %v. Using defaults for unparsed fields.", mainConfigPath, errUnmarshal)
			originalLoadError = errUnmarshal
		}
	}

	appConfig := ConvertJSONToAppConfig(appCfgJSON)
	appConfig.loadedFromPath = mainConfigPath

	configDir := filepath.Dir(mainConfigPath)
	niches, nichesErr := LoadNicheSets(configDir)
	if nichesErr != nil {
		log.Printf("Config Notice: Error loading niche sets, proceeding with built-in defaults: %v", nichesErr)
		niches = DefaultNicheSets()
	}
	appConfig.Niches = niches

	return appConfig, originalLoadError
}

// SaveStructured writes the JSON config shape to disk.
func SaveStructured(cfgJSON AppConfigJSON, filePath string) error {
	if filePath == "" {
		return fmt.Errorf("cannot save config, file path is empty")
	}
	data, err := json.MarshalIndent(cfgJSON, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal app config to JSON: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write app config to file '%s': %w", filePath, err)
	}
	log.Printf("Config: Successfully saved main configuration to '%s'", filePath)
	return nil
}

func ConvertJSONToAppConfig(jsonCfg AppConfigJSON) *AppConfig {
	cfg := &AppConfig{
		Server: jsonCfg.Server,
		Verifier: VerifierConfig{
			UserAgents:              jsonCfg.Verifier.UserAgents,
			DefaultHeaders:          jsonCfg.Verifier.DefaultHeaders,
			RequestTimeout:          time.Duration(jsonCfg.Verifier.RequestTimeoutSeconds) * time.Second,
			MaxRedirects:            jsonCfg.Verifier.MaxRedirects,
			MaxBodyBytes:            jsonCfg.Verifier.MaxBodyBytes,
			ProbeGuestPostPaths:     jsonCfg.Verifier.ProbeGuestPostPaths,
			MaxConcurrentGoroutines: jsonCfg.Verifier.MaxConcurrentGoroutines,
			RateLimitRPS:            jsonCfg.Verifier.RateLimitRPS,
			RateLimitBurst:          jsonCfg.Verifier.RateLimitBurst,
		},
		DNSCheck: DNSCheckConfig{
			Resolvers:          jsonCfg.DNSCheck.Resolvers,
			UseSystemResolvers: jsonCfg.DNSCheck.UseSystemResolvers,
			QueryTimeout:       time.Duration(jsonCfg.DNSCheck.QueryTimeoutSeconds) * time.Second,
		},
		Scheduler: SchedulerConfig{
			SweepInterval:        time.Duration(jsonCfg.Scheduler.SweepIntervalMinutes) * time.Minute,
			RevalidationInterval: time.Duration(jsonCfg.Scheduler.RevalidationIntervalMinutes) * time.Minute,
			RevalidationMaxAge:   time.Duration(jsonCfg.Scheduler.RevalidationMaxAgeDays) * 24 * time.Hour,
			WorkerCount:          jsonCfg.Scheduler.WorkerCount,
			ResearchWorkers:      jsonCfg.Scheduler.ResearchWorkers,
			ResearchQueueSize:    jsonCfg.Scheduler.ResearchQueueSize,
			ResearchMaxAttempts:  jsonCfg.Scheduler.ResearchMaxAttempts,
			MaxFollowUps:         jsonCfg.Scheduler.MaxFollowUps,
		},
		Outreach: OutreachConfig{
			AllowBlacklistRecontact: jsonCfg.Outreach.AllowBlacklistRecontact,
			RecentEmailsLimit:       jsonCfg.Outreach.RecentEmailsLimit,
		},
		Logging: jsonCfg.Logging,
	}

	if cfg.Verifier.RequestTimeout <= 0 {
		cfg.Verifier.RequestTimeout = 15 * time.Second
	}
	if cfg.Verifier.MaxBodyBytes <= 0 {
		cfg.Verifier.MaxBodyBytes = 2 * 1024 * 1024
	}
	if cfg.Verifier.MaxConcurrentGoroutines <= 0 {
		cfg.Verifier.MaxConcurrentGoroutines = 10
	}
	if cfg.Verifier.RateLimitRPS <= 0 {
		cfg.Verifier.RateLimitRPS = DefaultProbeRateLimitRPS
	}
	if cfg.Verifier.RateLimitBurst <= 0 {
		cfg.Verifier.RateLimitBurst = DefaultProbeRateLimitBurst
	}
	if cfg.DNSCheck.QueryTimeout <= 0 {
		cfg.DNSCheck.QueryTimeout = 5 * time.Second
	}
	if cfg.Scheduler.SweepInterval <= 0 {
		cfg.Scheduler.SweepInterval = 15 * time.Minute
	}
	if cfg.Scheduler.RevalidationInterval <= 0 {
		cfg.Scheduler.RevalidationInterval = 6 * time.Hour
	}
	if cfg.Scheduler.RevalidationMaxAge <= 0 {
		cfg.Scheduler.RevalidationMaxAge = 7 * 24 * time.Hour
	}
	if cfg.Scheduler.WorkerCount <= 0 {
		cfg.Scheduler.WorkerCount = 5
	}
	if cfg.Scheduler.ResearchWorkers <= 0 {
		cfg.Scheduler.ResearchWorkers = 3
	}
	if cfg.Scheduler.ResearchQueueSize <= 0 {
		cfg.Scheduler.ResearchQueueSize = 256
	}
	if cfg.Scheduler.ResearchMaxAttempts <= 0 {
		cfg.Scheduler.ResearchMaxAttempts = 5
	}
	if cfg.Scheduler.MaxFollowUps <= 0 {
		cfg.Scheduler.MaxFollowUps = 3
	}
	if cfg.Outreach.RecentEmailsLimit <= 0 {
		cfg.Outreach.RecentEmailsLimit = 50
	}
	return cfg
}

func DefaultAppConfigJSON() AppConfigJSON {
	return AppConfigJSON{
		Server: ServerConfig{
			Port:   "8080",
			APIKey: DefaultSystemAPIKeyPlaceholder,
		},
		Verifier: VerifierConfigJSON{
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36",
			},
			DefaultHeaders:        map[string]string{"Accept-Language": "en-US,en;q=0.9"},
			RequestTimeoutSeconds: 15,
			MaxRedirects:          7,
			MaxBodyBytes:          2 * 1024 * 1024,
			ProbeGuestPostPaths: []string{
				"/write-for-us", "/contribute", "/guest-post", "/submit",
			},
			MaxConcurrentGoroutines: 10,
			RateLimitRPS:            DefaultProbeRateLimitRPS,
			RateLimitBurst:          DefaultProbeRateLimitBurst,
		},
		DNSCheck: DNSCheckConfigJSON{
			Resolvers:           []string{"1.1.1.1:53", "8.8.8.8:53"},
			UseSystemResolvers:  false,
			QueryTimeoutSeconds: 5,
		},
		Scheduler: SchedulerConfigJSON{
			SweepIntervalMinutes:        15,
			RevalidationIntervalMinutes: 360,
			RevalidationMaxAgeDays:      7,
			WorkerCount:                 5,
			ResearchWorkers:             3,
			ResearchQueueSize:           256,
			ResearchMaxAttempts:         5,
			MaxFollowUps:                3,
		},
		Outreach: OutreachConfigJSON{
			AllowBlacklistRecontact: false,
			RecentEmailsLimit:       50,
		},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

func DefaultConfig() *AppConfig {
	cfg := ConvertJSONToAppConfig(DefaultAppConfigJSON())
	cfg.Niches = DefaultNicheSets()
	return cfg
}

// DefaultNicheSets mirrors the niche vocabulary the ranking layer was built
// around. Operators can replace these wholesale via niches.config.json.
func DefaultNicheSets() []NicheSet {
	sets := []NicheSet{
		{Niche: "technology", Rules: []NicheRule{
			{Pattern: "software", Type: "string"},
			{Pattern: "development", Type: "string"},
			{Pattern: "coding", Type: "string"},
			{Pattern: "programming", Type: "string"},
			{Pattern: "tech", Type: "string"},
			{Pattern: "api", Type: "string"},
			{Pattern: `\bsaas\b`, Type: "regex"},
		}},
		{Niche: "business", Rules: []NicheRule{
			{Pattern: "business", Type: "string"},
			{Pattern: "marketing", Type: "string"},
			{Pattern: "sales", Type: "string"},
			{Pattern: "entrepreneurship", Type: "string"},
			{Pattern: "startup", Type: "string"},
		}},
		{Niche: "health", Rules: []NicheRule{
			{Pattern: "health", Type: "string"},
			{Pattern: "fitness", Type: "string"},
			{Pattern: "wellness", Type: "string"},
			{Pattern: "medical", Type: "string"},
			{Pattern: "nutrition", Type: "string"},
		}},
	}
	CompileNicheRules(sets)
	return sets
}
