package handler

import (
	"fmt"
	"log"
	"strings"

	"meteo_discord_bot/internal/embeds"

	"github.com/bwmarrin/discordgo"
)

func (h *Handler) OnReady(s *discordgo.Session, event *discordgo.Ready) {
	log.Println("Bot is ready!")
	log.Printf("Logged in as: %s", s.State.User.Username)
	for _, g := range event.Guilds {
		log.Printf("Connected to guild %s (id: %s)", g.Name, g.ID)
	}

	// スラッシュコマンドを同期
	if err := h.SyncSlashCommands(s); err != nil {
		log.Printf("Error syncing slash commands: %v", err)
	}

	h.SendStartupNotification(s)
}

// OnGuildCreate 起動時・参加時にメンバー一覧をログに出す
func (h *Handler) OnGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	names := make([]string, 0, len(g.Members))
	for _, m := range g.Members {
		if m.User == nil || m.User.Bot {
			continue
		}
		names = append(names, m.User.Username)
	}
	log.Printf("Welcome to %s guild (id: %s)\nGuild Members:\n - %s", g.Name, g.ID, strings.Join(names, "\n - "))
}

// OnMemberJoin 新しいメンバーにDMで挨拶
func (h *Handler) OnMemberJoin(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
	if m.User == nil || m.User.Bot {
		return
	}
	channel, err := s.UserChannelCreate(m.User.ID)
	if err != nil {
		log.Printf("Failed to open DM with %s: %v", m.User.Username, err)
		return
	}
	if _, err := s.ChannelMessageSend(channel.ID, welcomeMessage(m.User.Username)); err != nil {
		log.Printf("Failed to greet %s: %v", m.User.Username, err)
	}
}

func welcomeMessage(name string) string {
	return fmt.Sprintf("Hi %s, welcome to our Discord server!", name)
}

// SendStartupNotification 起動通知をデフォルトチャンネルに送信
func (h *Handler) SendStartupNotification(s *discordgo.Session) {
	if h.opts.DefaultChannel == "" {
		return
	}
	if _, err := s.ChannelMessageSendEmbed(h.opts.DefaultChannel, embeds.BuildBotStartupEmbed(h.opts.BotInfo)); err != nil {
		log.Printf("Error sending startup embed to %s: %v", h.opts.DefaultChannel, err)
	}
}
