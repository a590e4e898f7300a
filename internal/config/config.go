package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for a jobsieve run. It is built once by Load
// or Default and never mutated afterwards.
type Config struct {
	Listing      ListingConfig
	Filters      FilterConfig
	Description  DescriptionConfig
	Output       OutputConfig
	Run          RunConfig
	Notification NotificationConfig
	Archive      ArchiveConfig
	Publish      PublishConfig
}

// ListingConfig describes the listing site and the facets to query.
type ListingConfig struct {
	SearchURL     string
	SiteURL       string // prefix for relative detail links
	Facets        []string
	ProbePageSize int
}

// Location filter policies. They are mutually exclusive.
const (
	LocationInclude = "include"
	LocationExclude = "exclude"
)

// Numeric date orders accepted by the deadline parser.
const (
	MonthFirst = "month_first"
	DayFirst   = "day_first"
)

// FilterConfig holds the stage-one filter settings.
type FilterConfig struct {
	TitleExclude []string
	LocationMode string // LocationInclude or LocationExclude
	Locations    []string
	SalaryMin    int
	SalaryMax    int
	DateOrder    string
}

// DescriptionConfig controls the optional second filter stage.
type DescriptionConfig struct {
	Enabled            bool
	ExcludeDisciplines []string
	Keywords           []string
}

// OutputConfig controls where the dataset is written.
type OutputConfig struct {
	Dir string
}

// RunConfig controls concurrency and timeouts.
type RunConfig struct {
	Workers           int
	ItemTimeout       time.Duration
	RequestTimeout    time.Duration
	RequestsPerSecond float64
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string         `yaml:"type"` // "email", "slack", "telegram", "log" or "none"
	Subject    string         `yaml:"subject"`
	WebhookURL string         `yaml:"webhook_url"` // required if type is "slack"
	SMTP       SMTPConfig     `yaml:"smtp"`
	Telegram   TelegramConfig `yaml:"telegram"`
}

// SMTPConfig holds the outbound mail relay settings.
type SMTPConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	From           string `yaml:"from"`
	KeyringAccount string `yaml:"keyring_account"` // looked up when password is empty
}

// TelegramConfig holds the bot settings for the telegram notifier.
type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

// ArchiveConfig enables the SQLite run archive when Path is set.
type ArchiveConfig struct {
	Path string `yaml:"path"`
}

// PublishConfig enables uploading the dataset after a run.
type PublishConfig struct {
	SFTP SFTPConfig `yaml:"sftp"`
}

// SFTPConfig describes the upload target. Host empty disables publishing.
type SFTPConfig struct {
	Host      string `yaml:"host"`
	Port      int    `yaml:"port"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	RemoteDir string `yaml:"remote_dir"`
}

const (
	defaultSearchURL = "https://www.jobs.ac.uk/search/?keywords=&location=&placeId=&activeFacet=academicDisciplineFacet&resetFacet=&sortOrder=1"
	defaultSiteURL   = "https://www.jobs.ac.uk"
	defaultSubject   = "Job Scraping"
)

// Default returns the configuration used when no config file exists. The lists
// mirror the search this tool was first written for.
func Default() *Config {
	return &Config{
		Listing: ListingConfig{
			SearchURL: defaultSearchURL,
			SiteURL:   defaultSiteURL,
			Facets: []string{
				"biological-sciences",
				"computer-sciences",
				"engineering-and-technology",
				"health-and-medical",
				"physical-and-environmental-sciences",
			},
			ProbePageSize: 25,
		},
		Filters: FilterConfig{
			TitleExclude: []string{
				"phd", "part time", "professor", "lecturer", "biostatistician",
				"aeronautic", "clinical", "nursing", "manager", "epidemiology",
				"high energy physics", "nuclear physics", "chemistry",
			},
			LocationMode: LocationInclude,
			Locations:    []string{"london", "oxford", "cambridge", "brighton"},
			SalaryMin:    30000,
			SalaryMax:    100000,
			DateOrder:    MonthFirst,
		},
		Description: DescriptionConfig{
			Enabled:            true,
			ExcludeDisciplines: []string{"astro"},
			Keywords:           []string{"optic", "fluorescen"},
		},
		Output: OutputConfig{Dir: "."},
		Run: RunConfig{
			Workers:           1,
			ItemTimeout:       30 * time.Second,
			RequestTimeout:    30 * time.Second,
			RequestsPerSecond: 2,
		},
		Notification: NotificationConfig{
			Type:    "email",
			Subject: defaultSubject,
			SMTP:    SMTPConfig{Host: "localhost", Port: 25},
		},
	}
}

// rawConfig is used for YAML unmarshaling (snake_case fields, durations as strings).
// Pointer fields distinguish "absent" from an explicit zero value.
type rawConfig struct {
	Listing      rawListingConfig     `yaml:"listing"`
	Filters      rawFilterConfig      `yaml:"filters"`
	Description  rawDescriptionConfig `yaml:"description"`
	Output       OutputConfig         `yaml:"output"`
	Run          rawRunConfig         `yaml:"run"`
	Notification NotificationConfig   `yaml:"notification"`
	Archive      ArchiveConfig        `yaml:"archive"`
	Publish      PublishConfig        `yaml:"publish"`
}

type rawListingConfig struct {
	SearchURL     string   `yaml:"search_url"`
	SiteURL       string   `yaml:"site_url"`
	Facets        []string `yaml:"facets"`
	ProbePageSize int      `yaml:"probe_page_size"`
}

type rawFilterConfig struct {
	TitleExclude []string `yaml:"title_exclude"`
	LocationMode string   `yaml:"location_mode"`
	Locations    []string `yaml:"locations"`
	SalaryMin    *int     `yaml:"salary_min"`
	SalaryMax    *int     `yaml:"salary_max"`
	DateOrder    string   `yaml:"date_order"`
}

type rawDescriptionConfig struct {
	Enabled            *bool    `yaml:"enabled"`
	ExcludeDisciplines []string `yaml:"exclude_disciplines"`
	Keywords           []string `yaml:"keywords"`
}

type rawRunConfig struct {
	Workers           int     `yaml:"workers"`
	ItemTimeout       string  `yaml:"item_timeout"`
	RequestTimeout    string  `yaml:"request_timeout"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// Load reads and parses the YAML config file at path, fills unset fields from
// Default, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()

	if raw.Listing.SearchURL != "" {
		cfg.Listing.SearchURL = raw.Listing.SearchURL
	}
	if raw.Listing.SiteURL != "" {
		cfg.Listing.SiteURL = raw.Listing.SiteURL
	}
	if raw.Listing.Facets != nil {
		cfg.Listing.Facets = raw.Listing.Facets
	}
	if raw.Listing.ProbePageSize != 0 {
		cfg.Listing.ProbePageSize = raw.Listing.ProbePageSize
	}

	if raw.Filters.TitleExclude != nil {
		cfg.Filters.TitleExclude = raw.Filters.TitleExclude
	}
	if raw.Filters.LocationMode != "" {
		cfg.Filters.LocationMode = strings.ToLower(raw.Filters.LocationMode)
	}
	if raw.Filters.Locations != nil {
		cfg.Filters.Locations = raw.Filters.Locations
	}
	if raw.Filters.SalaryMin != nil {
		cfg.Filters.SalaryMin = *raw.Filters.SalaryMin
	}
	if raw.Filters.SalaryMax != nil {
		cfg.Filters.SalaryMax = *raw.Filters.SalaryMax
	}
	if raw.Filters.DateOrder != "" {
		cfg.Filters.DateOrder = raw.Filters.DateOrder
	}

	if raw.Description.Enabled != nil {
		cfg.Description.Enabled = *raw.Description.Enabled
	}
	if raw.Description.ExcludeDisciplines != nil {
		cfg.Description.ExcludeDisciplines = raw.Description.ExcludeDisciplines
	}
	if raw.Description.Keywords != nil {
		cfg.Description.Keywords = raw.Description.Keywords
	}

	if raw.Output.Dir != "" {
		cfg.Output.Dir = raw.Output.Dir
	}

	if raw.Run.Workers != 0 {
		cfg.Run.Workers = raw.Run.Workers
	}
	if raw.Run.ItemTimeout != "" {
		cfg.Run.ItemTimeout, err = time.ParseDuration(raw.Run.ItemTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse run.item_timeout %q: %w", raw.Run.ItemTimeout, err)
		}
	}
	if raw.Run.RequestTimeout != "" {
		cfg.Run.RequestTimeout, err = time.ParseDuration(raw.Run.RequestTimeout)
		if err != nil {
			return nil, fmt.Errorf("parse run.request_timeout %q: %w", raw.Run.RequestTimeout, err)
		}
	}
	if raw.Run.RequestsPerSecond != 0 {
		cfg.Run.RequestsPerSecond = raw.Run.RequestsPerSecond
	}

	n := raw.Notification
	if n.Type != "" {
		cfg.Notification.Type = n.Type
	}
	if n.Subject != "" {
		cfg.Notification.Subject = n.Subject
	}
	cfg.Notification.WebhookURL = n.WebhookURL
	cfg.Notification.Telegram = n.Telegram
	if n.SMTP != (SMTPConfig{}) {
		smtp := n.SMTP
		if smtp.Port == 0 {
			smtp.Port = 587
		}
		cfg.Notification.SMTP = smtp
	}

	cfg.Archive = raw.Archive
	cfg.Publish = raw.Publish
	if cfg.Publish.SFTP.Host != "" && cfg.Publish.SFTP.Port == 0 {
		cfg.Publish.SFTP.Port = 22
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault behaves like Load but returns Default when path does not exist.
func LoadOrDefault(path string) (*Config, bool, error) {
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), false, nil
		}
		return nil, false, err
	}
	return cfg, true, nil
}

func validate(cfg *Config) error {
	if cfg.Listing.SearchURL == "" {
		return fmt.Errorf("listing.search_url is required")
	}
	if cfg.Listing.ProbePageSize <= 0 {
		return fmt.Errorf("listing.probe_page_size must be positive, got %d", cfg.Listing.ProbePageSize)
	}

	switch cfg.Filters.LocationMode {
	case LocationInclude, LocationExclude:
	default:
		return fmt.Errorf("filters.location_mode must be %q or %q, got %q", LocationInclude, LocationExclude, cfg.Filters.LocationMode)
	}
	if cfg.Filters.SalaryMin > cfg.Filters.SalaryMax {
		return fmt.Errorf("filters.salary_min (%d) exceeds filters.salary_max (%d)", cfg.Filters.SalaryMin, cfg.Filters.SalaryMax)
	}
	switch cfg.Filters.DateOrder {
	case MonthFirst, DayFirst:
	default:
		return fmt.Errorf("filters.date_order must be %q or %q, got %q", MonthFirst, DayFirst, cfg.Filters.DateOrder)
	}

	if cfg.Run.Workers < 1 {
		return fmt.Errorf("run.workers must be at least 1, got %d", cfg.Run.Workers)
	}
	if cfg.Run.ItemTimeout <= 0 || cfg.Run.RequestTimeout <= 0 {
		return fmt.Errorf("run timeouts must be positive")
	}
	if cfg.Run.RequestsPerSecond <= 0 {
		return fmt.Errorf("run.requests_per_second must be positive, got %v", cfg.Run.RequestsPerSecond)
	}

	switch cfg.Notification.Type {
	case "email":
		if cfg.Notification.SMTP.Host == "" {
			return fmt.Errorf("notification.smtp.host is required when type is \"email\"")
		}
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	case "telegram":
		if cfg.Notification.Telegram.Token == "" || cfg.Notification.Telegram.ChatID == 0 {
			return fmt.Errorf("notification.telegram.token and chat_id are required when type is \"telegram\"")
		}
	case "log", "none":
	default:
		return fmt.Errorf("unknown notification.type %q", cfg.Notification.Type)
	}

	if s := cfg.Publish.SFTP; s.Host != "" && (s.User == "" || s.Password == "") {
		return fmt.Errorf("publish.sftp.user and password are required when publish.sftp.host is set")
	}

	return nil
}
