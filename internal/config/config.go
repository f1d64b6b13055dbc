package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Host     string   `koanf:"host"`
	Listen   string   `koanf:"listen"`
	Google   Google   `koanf:"google"`
	Database Database `koanf:"db"`
	Sync     Sync     `koanf:"sync"`
}

type Google struct {
	ClientId     string `koanf:"clientid"`
	ClientSecret string `koanf:"clientsecret"`
}

type Database struct {
	Path string `koanf:"path"`
}

type Sync struct {
	// Schedule is a cron expression driving the batch reconciliation runs.
	Schedule string `koanf:"schedule"`
	// LookBehindDays and LookAheadDays bound the backfill window around "now".
	LookBehindDays int `koanf:"lookbehinddays"`
	LookAheadDays  int `koanf:"lookaheaddays"`
	// RemoveOnlyMatching restricts orphan removal in the dedup pass to events
	// that still match the subscription filter, protecting manual entries in
	// shared target calendars.
	RemoveOnlyMatching bool `koanf:"removeonlymatching"`
	// RunTimeoutSeconds bounds a single subscription run so one stuck
	// subscription cannot starve the others.
	RunTimeoutSeconds int `koanf:"runtimeoutseconds"`
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Application{
		Host:   "http://localhost:3000",
		Listen: ":8282",
		Database: Database{
			Path: "calmirror.db",
		},
		Sync: Sync{
			Schedule:          "*/15 * * * *",
			LookBehindDays:    7,
			LookAheadDays:     60,
			RunTimeoutSeconds: 300,
		},
	}, "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "CALMIRROR_",
		TransformFunc: func(k, v string) (string, any) {
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "CALMIRROR_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	return app, nil
}
