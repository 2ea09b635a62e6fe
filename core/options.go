package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	opts "github.com/goliatone/go-options"
)

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// GoOptionsResolver merges defaults < loaded < runtime with layered scopes.
type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || cfg.VerifySignatures {
		layer["verify_signatures"] = cfg.VerifySignatures
	}
	if includeZero || len(cfg.TrustedCertDomains) > 0 {
		layer["trusted_cert_domains"] = append([]string(nil), cfg.TrustedCertDomains...)
	}
	if includeZero || cfg.BlacklistOnBounce {
		layer["blacklist_on_bounce"] = cfg.BlacklistOnBounce
	}
	if includeZero || cfg.BlacklistOnComplaint {
		layer["blacklist_on_complaint"] = cfg.BlacklistOnComplaint
	}
	if includeZero || cfg.UseBlacklist {
		layer["use_blacklist"] = cfg.UseBlacklist
	}
	if includeZero || strings.TrimSpace(cfg.InboundHandler) != "" {
		layer["inbound_handler"] = cfg.InboundHandler
	}
	send := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Send.Region) != "" {
		send["region"] = cfg.Send.Region
	}
	if includeZero || strings.TrimSpace(cfg.Send.ReturnPath) != "" {
		send["return_path"] = cfg.Send.ReturnPath
	}
	if includeZero || cfg.Send.AutoThrottle != 0 {
		send["auto_throttle"] = cfg.Send.AutoThrottle
	}
	if len(send) > 0 {
		layer["send"] = send
	}
	storage := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Storage.Driver) != "" {
		storage["driver"] = cfg.Storage.Driver
	}
	if includeZero || strings.TrimSpace(cfg.Storage.DSN) != "" {
		storage["dsn"] = cfg.Storage.DSN
	}
	if includeZero || cfg.Storage.Debug {
		storage["debug"] = cfg.Storage.Debug
	}
	if includeZero || cfg.Storage.PingTimeout != 0 {
		storage["ping_timeout"] = cfg.Storage.PingTimeout
	}
	if len(storage) > 0 {
		layer["storage"] = storage
	}
	return layer
}
