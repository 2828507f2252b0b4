package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	"super_clicker/internal/admin"
	"super_clicker/internal/domain"
	"super_clicker/internal/moderation"
	"super_clicker/internal/service"
	"super_clicker/internal/store"
)

// Commands executes admin bot commands. Every admin gets its own workflow,
// so the loaded target survives between messages.
type Commands struct {
	moderation *service.ModerationService
	adminSvc   *service.AdminService
	now        func() time.Time

	mu        sync.Mutex
	workflows map[int64]*admin.Workflow
}

func NewCommands(moderation *service.ModerationService, adminSvc *service.AdminService) *Commands {
	return &Commands{
		moderation: moderation,
		adminSvc:   adminSvc,
		now:        time.Now,
		workflows:  make(map[int64]*admin.Workflow),
	}
}

func (c *Commands) workflow(adminID int64) *admin.Workflow {
	c.mu.Lock()
	defer c.mu.Unlock()
	w, ok := c.workflows[adminID]
	if !ok {
		w = c.moderation.NewWorkflow()
		c.workflows[adminID] = w
	}
	return w
}

// Handle returns the HTML reply for one command.
func (c *Commands) Handle(ctx context.Context, adminID int64, command, args string) string {
	args = strings.TrimSpace(args)

	switch command {
	case "start", "help":
		return helpMessage()
	case "reasons":
		return reasonsMessage()
	case "find":
		return c.handleFind(ctx, adminID, args)
	case "status":
		return c.handleStatus(adminID)
	case "ban":
		return c.handleTimed(ctx, adminID, service.ActionBan, admin.BanReasons, args)
	case "freeze":
		return c.handleTimed(ctx, adminID, service.ActionFreeze, admin.FreezeReasons, args)
	case "warn":
		reason, detail := resolveReason(admin.WarnReasons, args)
		return c.run(ctx, adminID, service.ActionWarn, service.ActionRequest{Reason: reason, Detail: detail})
	case "unban":
		return c.run(ctx, adminID, service.ActionUnban, service.ActionRequest{})
	case "unfreeze":
		return c.run(ctx, adminID, service.ActionUnfreeze, service.ActionRequest{})
	case "retry":
		return c.run(ctx, adminID, service.ActionRetry, service.ActionRequest{})
	case "stats":
		return c.handleStats(ctx)
	case "top":
		return c.handleTop(ctx)
	default:
		return "❌ Неизвестная команда. Используйте /help для списка команд."
	}
}

func helpMessage() string {
	return `<b>🤖 Команды модерации</b>

<b>👤 Игрок:</b>
/find &lt;user_id&gt; - Загрузить игрока
/status - Текущий игрок

<b>🔨 Действия:</b>
/ban &lt;срок&gt; &lt;причина&gt; - Заблокировать
/unban - Разблокировать
/freeze &lt;срок&gt; &lt;причина&gt; - Заморозить
/unfreeze - Разморозить
/warn &lt;причина&gt; - Предупреждение
/retry - Повторить сохранение
/reasons - Список причин

Срок: 1h, 1d, 1w, 1m, forever. Причина: номер из /reasons и пояснение, или текст.

<b>📊 Статистика:</b>
/stats - Статистика игры
/top - Топ игроков`
}

func reasonsMessage() string {
	var sb strings.Builder
	list := func(title string, reasons []string) {
		sb.WriteString("<b>" + title + "</b>\n")
		for i, r := range reasons {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, html.EscapeString(r))
		}
	}
	list("🚫 Бан:", admin.BanReasons)
	sb.WriteString("\n")
	list("🧊 Заморозка:", admin.FreezeReasons)
	sb.WriteString("\n")
	list("⚠️ Предупреждение:", admin.WarnReasons)
	return sb.String()
}

// resolveReason treats a leading number as a preset index; the rest is detail.
func resolveReason(presets []string, args string) (string, string) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		return "", ""
	}
	if n, err := strconv.Atoi(fields[0]); err == nil && n >= 1 && n <= len(presets) {
		return presets[n-1], strings.Join(fields[1:], " ")
	}
	return args, ""
}

func (c *Commands) handleFind(ctx context.Context, adminID int64, args string) string {
	userID, err := strconv.ParseInt(args, 10, 64)
	if err != nil {
		return "❌ Использование: /find &lt;user_id&gt;"
	}

	w := c.workflow(adminID)
	rec, err := w.Search(ctx, userID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return fmt.Sprintf("❌ Игрок %d не найден", userID)
	case errors.Is(err, admin.ErrSearchInProgress):
		return "⏳ Поиск уже выполняется"
	case err != nil:
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}
	return c.card(rec, w.Committed())
}

func (c *Commands) handleStatus(adminID int64) string {
	w := c.workflow(adminID)
	rec := w.Target()
	if rec == nil {
		return "ℹ️ Игрок не выбран. Используйте /find"
	}
	return c.card(rec, w.Committed())
}

func (c *Commands) handleTimed(ctx context.Context, adminID int64, action string, presets []string, args string) string {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return fmt.Sprintf("❌ Использование: /%s &lt;срок&gt; &lt;причина&gt;", action)
	}
	reason, detail := resolveReason(presets, strings.Join(fields[1:], " "))
	return c.run(ctx, adminID, action, service.ActionRequest{Reason: reason, Detail: detail, Duration: fields[0]})
}

func (c *Commands) run(ctx context.Context, adminID int64, action string, req service.ActionRequest) string {
	res, err := c.moderation.Run(ctx, c.workflow(adminID), adminID, action, req)
	switch {
	case errors.Is(err, admin.ErrNoTarget):
		return "ℹ️ Сначала выберите игрока: /find &lt;user_id&gt;"
	case errors.Is(err, admin.ErrNotCommitted):
		return "⚠️ Изменение не сохранено. Повторите: /retry"
	case err != nil:
		return fmt.Sprintf("❌ Ошибка: %s", html.EscapeString(err.Error()))
	}

	if len(res.Events) == 0 {
		return "ℹ️ Нет изменений\n\n" + c.card(res.Record, true)
	}
	var sb strings.Builder
	for _, ev := range res.Events {
		sb.WriteString("✅ " + html.EscapeString(ev.Message()) + "\n")
	}
	sb.WriteString("\n")
	sb.WriteString(c.card(res.Record, true))
	return sb.String()
}

func (c *Commands) card(rec *domain.PlayerRecord, committed bool) string {
	st := rec.AccountStatus
	now := c.now()

	state := "🟢 Активен"
	switch {
	case moderation.IsActivelyBanned(st, now):
		state = "🚫 Заблокирован"
	case moderation.IsActivelyFrozen(st, now):
		state = "🧊 Заморожен"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `<b>👤 Игрок %d</b>

• Имя: %s
• Уровень: %d
• 🪙 Монеты: %d
• Клики: %d
• Статус: %s
• ⚠️ Предупреждения: %d`,
		rec.UserID,
		html.EscapeString(rec.Username),
		rec.Level,
		rec.Coins,
		rec.TotalClicks,
		state,
		st.Warnings,
	)
	if s := moderation.Summary(st, now); s != "" {
		sb.WriteString("\n• " + html.EscapeString(s))
	}
	if !committed {
		sb.WriteString("\n\n⚠️ Есть несохранённые изменения: /retry")
	}
	return sb.String()
}

func (c *Commands) handleStats(ctx context.Context) string {
	stats, err := c.adminSvc.GetStats(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}

	return fmt.Sprintf(`<b>📊 Статистика игры</b>

• Всего игроков: %d
• Активных: %d
• Заблокировано: %d
• Заморожено: %d
• 🪙 Всего монет: %d
• Всего кликов: %d`,
		stats.TotalUsers,
		stats.ActiveUsers,
		stats.BannedUsers,
		stats.FrozenUsers,
		stats.TotalCoins,
		stats.TotalClicks,
	)
}

func (c *Commands) handleTop(ctx context.Context) string {
	top, err := c.adminSvc.Leaderboard(ctx)
	if err != nil {
		return fmt.Sprintf("❌ Ошибка: %v", err)
	}
	if len(top) == 0 {
		return "📭 Нет игроков"
	}

	var sb strings.Builder
	sb.WriteString("<b>🏆 Топ игроков</b>\n\n")
	for i, e := range top {
		fmt.Fprintf(&sb, "%d. %s (%d) - %d 🪙, ур. %d\n", i+1, html.EscapeString(e.Username), e.UserID, e.Coins, e.Level)
	}
	return sb.String()
}
