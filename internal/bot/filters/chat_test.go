package filters

import (
	"context"
	"errors"
	"testing"

	"github.com/mymmrac/telego"
)

const economyChat = -100500

type fakeRoster struct {
	members  map[int64]bool
	ensured  []int64
	checkErr error
}

func (r *fakeRoster) IsMember(_ context.Context, id int64) (bool, error) {
	return r.members[id], r.checkErr
}

func (r *fakeRoster) EnsureMember(_ context.Context, id int64, _, _, _ string) error {
	r.ensured = append(r.ensured, id)
	return nil
}

type fakeTelegram struct {
	status string
	sent   []int64
}

func (t *fakeTelegram) ChatMemberStatus(context.Context, int64, int64) (string, error) {
	return t.status, nil
}

func (t *fakeTelegram) Send(_ context.Context, chatID int64, _ string) {
	t.sent = append(t.sent, chatID)
}

func message(chatID int64, chatType string, from *telego.User) *telego.Message {
	return &telego.Message{Chat: telego.Chat{ID: chatID, Type: chatType}, From: from, Text: "!очки"}
}

func TestCheckAccess(t *testing.T) {
	user := &telego.User{ID: 7, FirstName: "Мел"}
	tests := []struct {
		name       string
		msg        *telego.Message
		roster     *fakeRoster
		tgStatus   string
		want       bool
		wantEnsure int
		wantDeny   int
	}{
		{"economy chat", message(economyChat, "supergroup", user), &fakeRoster{}, "", true, 0, 0},
		{"foreign group", message(-42, "group", user), &fakeRoster{}, "", false, 0, 0},
		{"no sender", message(economyChat, "supergroup", nil), &fakeRoster{}, "", false, 0, 0},
		{"private roster member", message(7, telego.ChatTypePrivate, user), &fakeRoster{members: map[int64]bool{7: true}}, "", true, 0, 0},
		{"private telegram member backfilled", message(7, telego.ChatTypePrivate, user), &fakeRoster{}, "member", true, 1, 0},
		{"private stranger", message(7, telego.ChatTypePrivate, user), &fakeRoster{}, "left", false, 0, 1},
		{"roster failure", message(7, telego.ChatTypePrivate, user), &fakeRoster{checkErr: errors.New("db down")}, "member", false, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tg := &fakeTelegram{status: tt.tgStatus}
			f := NewChatFilter(economyChat, tt.roster, tg)
			if got := f.CheckAccess(context.Background(), tt.msg); got != tt.want {
				t.Fatalf("CheckAccess = %v, want %v", got, tt.want)
			}
			if len(tt.roster.ensured) != tt.wantEnsure {
				t.Fatalf("ensured = %v", tt.roster.ensured)
			}
			if len(tg.sent) != tt.wantDeny {
				t.Fatalf("deny messages = %v", tg.sent)
			}
		})
	}
}
