package bot

import "strings"

// CommandParser парсит команды с префиксами !, . и /
type CommandParser struct {
	validPrefixes []string
}

// NewCommandParser создаёт парсер команд.
func NewCommandParser() *CommandParser {
	return &CommandParser{
		validPrefixes: []string{"!", ".", "/"},
	}
}

// ParseCommand разбирает текст на команду и аргументы.
// Суффикс "@имя_бота" у команды отбрасывается: /points@melbot → points.
func (p *CommandParser) ParseCommand(text string) (string, []string, bool) {
	text = strings.TrimSpace(text)

	hasPrefix := false
	for _, prefix := range p.validPrefixes {
		if strings.HasPrefix(text, prefix) {
			text = strings.TrimPrefix(text, prefix)
			hasPrefix = true
			break
		}
	}
	if !hasPrefix {
		return "", nil, false
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return "", nil, false
	}

	command := strings.ToLower(parts[0])
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	return command, args, true
}

// Канонические имена команд.
const (
	cmdHelp        = "help"
	cmdPoints      = "points"
	cmdLeaderboard = "leaderboard"
	cmdHistory     = "history"
	cmdShop        = "shop"
	cmdBuy         = "buy"
	cmdGamble      = "gamble"
	cmdBlackjack   = "blackjack"
	cmdHit         = "hit"
	cmdStand       = "stand"
	cmdGacha       = "gacha"
	cmdPity        = "pity"
	cmdLogin       = "login"
	cmdLogout      = "logout"
	cmdAddItem     = "add_item"
	cmdRemoveItem  = "remove_item"
	cmdAdd         = "add"
	cmdRemove      = "remove"
)

var commandAliases = map[string]string{
	"start": cmdHelp, "help": cmdHelp, "помощь": cmdHelp,
	"очки": cmdPoints, "баланс": cmdPoints, "points": cmdPoints, "balance": cmdPoints,
	"топ": cmdLeaderboard, "leaderboard": cmdLeaderboard, "lb": cmdLeaderboard,
	"история": cmdHistory, "history": cmdHistory,
	"магазин": cmdShop, "shop": cmdShop,
	"купить": cmdBuy, "buy": cmdBuy,
	"ставка": cmdGamble, "gamble": cmdGamble,
	"блэкджек": cmdBlackjack, "блекджек": cmdBlackjack, "blackjack": cmdBlackjack, "bj": cmdBlackjack,
	"еще": cmdHit, "ещё": cmdHit, "hit": cmdHit,
	"хватит": cmdStand, "stand": cmdStand,
	"гача": cmdGacha, "gacha": cmdGacha, "pull": cmdGacha,
	"гарант": cmdPity, "pity": cmdPity,
	"login": cmdLogin, "logout": cmdLogout,
	"add_item": cmdAddItem, "remove_item": cmdRemoveItem,
	"add": cmdAdd, "remove": cmdRemove,
}

// canonical переводит алиас в каноническое имя команды.
func canonical(cmd string) (string, bool) {
	name, ok := commandAliases[cmd]
	return name, ok
}

const helpText = `🤖 Команды:
!очки [@username] — баланс
!топ — лидерборд
!история — последние движения
!магазин, !купить <номер или название>
!ставка <N|all|half|max>
!блэкджек <ставка>, !еще, !хватит
!гача [N|max], !гарант

Очки начисляются за сообщения в чате.`
