package commands

import (
	"log"
	"mime"
	"os"
	"path/filepath"

	"github.com/bwmarrin/discordgo"
)

// ユーザー向けメッセージ
const (
	msgWrongCity     = "Wrong city"
	msgNoGrid        = "Meteogram is not available for this city right now."
	msgUnavailable   = "meteo.pl is not responding, try again later."
	msgInternalError = "An error occurred while executing the command."
	msgMoonDisabled  = "Moon images are not configured."
	msgSatDisabled   = "Satellite images are not configured."
	msgNoPermission  = "❌ Only server admins can use this command."
	msgSettingsSaved = "✅ Settings saved."
)

// reply コマンドの返信内容
type reply struct {
	content  string
	embed    *discordgo.MessageEmbed
	file     string // 添付するファイルのパス
	fileName string // 添付名。空なら file のベース名
	remove   bool   // 送信後に file を削除する
}

func textReply(content string) reply {
	return reply{content: content}
}

// attach ファイルを開く。done は送信後に必ず呼ぶ
func (r reply) attach() ([]*discordgo.File, func(), error) {
	if r.file == "" {
		return nil, func() {}, nil
	}
	f, err := os.Open(r.file)
	if err != nil {
		r.cleanup()
		return nil, func() {}, err
	}

	name := r.fileName
	if name == "" {
		name = filepath.Base(r.file)
	}
	files := []*discordgo.File{{
		Name:        name,
		ContentType: mime.TypeByExtension(filepath.Ext(name)),
		Reader:      f,
	}}
	return files, func() {
		f.Close()
		r.cleanup()
	}, nil
}

// cleanup 呼び出し側が持つ合成画像を削除
func (r reply) cleanup() {
	if !r.remove || r.file == "" {
		return
	}
	if err := os.Remove(r.file); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove %s: %v", r.file, err)
	}
}

func (r reply) embeds() []*discordgo.MessageEmbed {
	if r.embed == nil {
		return nil
	}
	return []*discordgo.MessageEmbed{r.embed}
}

// sendChannel テキストコマンドへの返信
func sendChannel(s *discordgo.Session, channelID string, r reply) error {
	files, done, err := r.attach()
	if err != nil {
		return err
	}
	defer done()

	_, err = s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Content: r.content,
		Embeds:  r.embeds(),
		Files:   files,
	})
	return err
}

func respondDeferred(s *discordgo.Session, i *discordgo.InteractionCreate) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	})
}

// sendFollowup respondDeferred の後に結果を送る
func sendFollowup(s *discordgo.Session, i *discordgo.InteractionCreate, r reply) error {
	files, done, err := r.attach()
	if err != nil {
		return err
	}
	defer done()

	_, err = s.FollowupMessageCreate(i.Interaction, false, &discordgo.WebhookParams{
		Content: r.content,
		Embeds:  r.embeds(),
		Files:   files,
	})
	return err
}

func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, msg string) error {
	return s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: msg,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// stringOption スラッシュコマンドの文字列オプションを取得
func stringOption(i *discordgo.InteractionCreate, name string) string {
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == name && opt.Type == discordgo.ApplicationCommandOptionString {
			return opt.StringValue()
		}
	}
	return ""
}

// interactionUserID インタラクションの送信者
func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}
