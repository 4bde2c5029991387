package commands

import (
	"fmt"
	"log"
	"strings"

	"meteo_discord_bot/internal/config"

	"github.com/bwmarrin/discordgo"
)

// SettingsCommand サーバーごとの設定（管理者専用）
type SettingsCommand struct {
	settings *config.SettingsManager
}

// NewSettingsCommand 設定コマンドを作成
func NewSettingsCommand(settings *config.SettingsManager) *SettingsCommand {
	return &SettingsCommand{settings: settings}
}

func (c *SettingsCommand) Name() string { return "settings" }
func (c *SettingsCommand) Description() string {
	return "Server settings: keep-alive channel and default city (admins only)"
}
func (c *SettingsCommand) Usage() string { return "[keepalive here|on|off] [city <name>|clear]" }

func (c *SettingsCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: "Server settings (admins only)",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "keepalive",
				Description: "Keep-alive messages in this channel",
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "here", Value: "here"},
					{Name: "on", Value: "on"},
					{Name: "off", Value: "off"},
				},
			},
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "city",
				Description: "Default city for /um (\"clear\" to remove)",
			},
		},
	}
}

// ExecuteText テキストコマンド実行（管理者のみ）
func (c *SettingsCommand) ExecuteText(s *discordgo.Session, m *discordgo.MessageCreate, args []string) error {
	if !isAdmin(s, m.GuildID, m.Author.ID) {
		_, err := s.ChannelMessageSend(m.ChannelID, msgNoPermission)
		return err
	}

	changes, err := parseSettingsArgs(args)
	if err != nil {
		_, err = s.ChannelMessageSend(m.ChannelID, err.Error()+"\nUsage: settings "+c.Usage())
		return err
	}
	msg, err := c.apply(m.GuildID, m.ChannelID, changes)
	if err != nil {
		return err
	}
	_, err = s.ChannelMessageSend(m.ChannelID, msg)
	return err
}

// ExecuteSlash スラッシュコマンド実行（管理者のみ）
func (c *SettingsCommand) ExecuteSlash(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	if i.GuildID == "" || !isAdmin(s, i.GuildID, interactionUserID(i)) {
		return respondEphemeral(s, i, msgNoPermission)
	}

	changes := map[string]string{}
	if v := stringOption(i, "keepalive"); v != "" {
		changes["keepalive"] = v
	}
	if v := stringOption(i, "city"); v != "" {
		changes["city"] = v
	}
	msg, err := c.apply(i.GuildID, i.ChannelID, changes)
	if err != nil {
		return err
	}
	return respondEphemeral(s, i, msg)
}

// parseSettingsArgs "keepalive here city Nowy Sącz" のような引数を解釈
func parseSettingsArgs(args []string) (map[string]string, error) {
	changes := map[string]string{}
	for idx := 0; idx < len(args); idx++ {
		key := strings.ToLower(args[idx])
		switch key {
		case "keepalive":
			if idx+1 >= len(args) {
				return nil, fmt.Errorf("keepalive needs a value")
			}
			idx++
			changes[key] = strings.ToLower(args[idx])
		case "city":
			// 都市名は残り全部
			if idx+1 >= len(args) {
				return nil, fmt.Errorf("city needs a value")
			}
			changes[key] = strings.Join(args[idx+1:], " ")
			idx = len(args)
		default:
			return nil, fmt.Errorf("unknown setting %q", args[idx])
		}
	}
	return changes, nil
}

// applySettings 変更を適用する
func applySettings(gs *config.GuildSettings, channelID string, changes map[string]string) error {
	if v, ok := changes["keepalive"]; ok {
		switch v {
		case "here":
			ch := channelID
			gs.KeepAliveChannel = &ch
			gs.KeepAliveEnabled = true
		case "on":
			gs.KeepAliveEnabled = true
		case "off":
			gs.KeepAliveEnabled = false
		default:
			return fmt.Errorf("keepalive must be here, on or off")
		}
	}
	if v, ok := changes["city"]; ok {
		if strings.EqualFold(v, "clear") {
			gs.DefaultCity = ""
		} else {
			gs.DefaultCity = v
		}
	}
	return nil
}

func (c *SettingsCommand) apply(guildID, channelID string, changes map[string]string) (string, error) {
	if len(changes) > 0 {
		// 不正な値なら何も保存しない
		probe := c.settings.GetGuildSettings(guildID)
		if err := applySettings(&probe, channelID, changes); err != nil {
			return err.Error(), nil
		}
		err := c.settings.UpdateGuildSetting(guildID, func(gs *config.GuildSettings) {
			_ = applySettings(gs, channelID, changes)
		})
		if err != nil {
			return "", err
		}
		log.Printf("Settings updated for guild %s: %v", guildID, changes)
	}
	return describeSettings(c.settings.GetGuildSettings(guildID), len(changes) > 0), nil
}

func describeSettings(gs config.GuildSettings, saved bool) string {
	var b strings.Builder
	if saved {
		b.WriteString(msgSettingsSaved + "\n")
	}
	ch := "not set"
	if gs.KeepAliveChannel != nil {
		ch = "<#" + *gs.KeepAliveChannel + ">"
	}
	fmt.Fprintf(&b, "Keep-alive: %s (%s)\n", onOffText(gs.KeepAliveEnabled), ch)
	city := gs.DefaultCity
	if city == "" {
		city = "not set"
	}
	fmt.Fprintf(&b, "Default city: %s", city)
	return b.String()
}

func onOffText(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// isAdmin サーバーオーナー、または管理者・チャンネル管理権限を持つか
func isAdmin(s *discordgo.Session, guildID, userID string) bool {
	if guildID == "" || userID == "" {
		return false
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild, err = s.Guild(guildID)
		if err != nil {
			log.Printf("Failed to get guild: %v", err)
			return false
		}
	}
	if guild.OwnerID == userID {
		return true
	}

	member, err := s.GuildMember(guildID, userID)
	if err != nil {
		log.Printf("Failed to get member: %v", err)
		return false
	}
	for _, roleID := range member.Roles {
		role, err := s.State.Role(guildID, roleID)
		if err != nil {
			continue
		}
		if role.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageChannels) != 0 {
			return true
		}
	}
	return false
}
