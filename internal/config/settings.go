package config

import (
	"encoding/json"
	"os"
	"sync"

	"meteo_discord_bot/internal/utils"
)

// GuildSettings サーバーごとの設定
type GuildSettings struct {
	KeepAliveChannel *string `json:"keepalive_channel,omitempty"` // 定期メッセージのチャンネルID
	KeepAliveEnabled bool    `json:"keepalive_enabled"`           // 定期メッセージON/OFF
	DefaultCity      string  `json:"default_city,omitempty"`      // !um の引数省略時に使う都市
}

// DefaultGuildSettings デフォルト設定
var DefaultGuildSettings = GuildSettings{
	KeepAliveEnabled: true,
}

type fileFormat struct {
	Guilds map[string]GuildSettings `json:"guilds"`
}

// SettingsManager 設定管理
type SettingsManager struct {
	mu       sync.RWMutex
	guilds   map[string]GuildSettings
	filePath string
}

// NewSettingsManager 設定マネージャーを作成
func NewSettingsManager(path string) (*SettingsManager, error) {
	sm := &SettingsManager{
		guilds:   make(map[string]GuildSettings),
		filePath: path,
	}
	if err := sm.Load(); err != nil {
		return nil, err
	}
	return sm, nil
}

// Load 設定をファイルから読み込む
func (sm *SettingsManager) Load() error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	data, err := os.ReadFile(sm.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var format fileFormat
	if err := json.Unmarshal(data, &format); err != nil {
		return err
	}
	sm.guilds = format.Guilds
	if sm.guilds == nil {
		sm.guilds = make(map[string]GuildSettings)
	}
	return nil
}

func (sm *SettingsManager) saveUnsafe() error {
	data, err := json.MarshalIndent(fileFormat{Guilds: sm.guilds}, "", "  ")
	if err != nil {
		return err
	}
	return utils.WriteFileAtomic(sm.filePath, data)
}

// GetGuildSettings サーバー設定を取得（存在しない場合はデフォルト）
func (sm *SettingsManager) GetGuildSettings(guildID string) GuildSettings {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if settings, ok := sm.guilds[guildID]; ok {
		return settings
	}
	return DefaultGuildSettings
}

// UpdateGuildSetting 特定の設定項目を更新して保存
func (sm *SettingsManager) UpdateGuildSetting(guildID string, update func(*GuildSettings)) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	settings, ok := sm.guilds[guildID]
	if !ok {
		settings = DefaultGuildSettings
	}
	update(&settings)
	sm.guilds[guildID] = settings
	return sm.saveUnsafe()
}

// KeepAliveChannels 定期メッセージを送るチャンネル一覧
func (sm *SettingsManager) KeepAliveChannels() []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	var channels []string
	for _, s := range sm.guilds {
		if s.KeepAliveEnabled && s.KeepAliveChannel != nil && *s.KeepAliveChannel != "" {
			channels = append(channels, *s.KeepAliveChannel)
		}
	}
	return channels
}
