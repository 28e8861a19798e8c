package notify

import (
	"fmt"
	"time"

	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"
	"github.com/glachaux/reunion-rooms/config"
	"github.com/glachaux/reunion-rooms/content"
	"github.com/glachaux/reunion-rooms/countdown"
	"github.com/glachaux/reunion-rooms/globals"
	"github.com/glachaux/reunion-rooms/persistence"
	"github.com/glachaux/reunion-rooms/types"
	"github.com/robfig/cron/v3"
)

// push services cap multicast batches
const chunkSize = 500

// Env is the expression environment of the optional per-rule filters.
type Env struct {
	RoomId   string
	DaysLeft int
	TodayKey string
}

// Dispatcher runs the scheduled notifications (daily unlock, J-14) and
// watches the store firehose for playlist additions. Both scheduled rules are
// idempotent per day via the lastDailyNotify / lastJ14Notify document keys, so
// a restart cannot double-send.
type Dispatcher struct {
	store     *persistence.Store
	messenger Messenger
	cfg       *config.Config
	loc       *time.Location

	dailyProg *vm.Program
	j14Prog   *vm.Program

	cronRunner *cron.Cron
	unsub      func()
	doneChan   chan struct{}
}

func NewDispatcher(store *persistence.Store, messenger Messenger, cfg *config.Config) (*Dispatcher, error) {
	loc, err := time.LoadLocation(cfg.NotifyConfig.TimeZone)
	if err != nil {
		return nil, err
	}
	d := &Dispatcher{
		store:     store,
		messenger: messenger,
		cfg:       cfg,
		loc:       loc,
		doneChan:  make(chan struct{}),
	}
	if src := cfg.NotifyConfig.DailyFilter; src != "" {
		d.dailyProg, err = expr.Compile(src, expr.Env(Env{}))
		if err != nil {
			return nil, fmt.Errorf("could not compile daily filter: %w", err)
		}
	}
	if src := cfg.NotifyConfig.J14Filter; src != "" {
		d.j14Prog, err = expr.Compile(src, expr.Env(Env{}))
		if err != nil {
			return nil, fmt.Errorf("could not compile j14 filter: %w", err)
		}
	}
	return d, nil
}

// Start schedules the cron rules and begins watching the firehose.
func (d *Dispatcher) Start() error {
	d.cronRunner = cron.New(cron.WithLocation(d.loc), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := d.cronRunner.AddFunc(d.cfg.NotifyConfig.DailySpec, func() { d.RunDaily(time.Now()) }); err != nil {
		return err
	}
	if _, err := d.cronRunner.AddFunc(d.cfg.NotifyConfig.J14Spec, func() { d.RunJ14(time.Now()) }); err != nil {
		return err
	}
	d.cronRunner.Start()

	ch, cancel := d.store.SubscribeAll()
	d.unsub = cancel
	go func() {
		for {
			select {
			case <-d.doneChan:
				return
			case u, ok := <-ch:
				if !ok {
					return
				}
				d.HandleUpdate(u)
			}
		}
	}()
	return nil
}

func (d *Dispatcher) Stop() {
	if d.cronRunner != nil {
		d.cronRunner.Stop()
	}
	if d.unsub != nil {
		d.unsub()
	}
	close(d.doneChan)
}

// pass evaluates an optional filter program; a missing program passes.
func (d *Dispatcher) pass(prog *vm.Program, env Env) bool {
	if prog == nil {
		return true
	}
	out, err := expr.Run(prog, env)
	if err != nil {
		globals.AppLogger.Error("filter evaluation failed", "room", env.RoomId, "error", err)
		return false
	}
	res, ok := out.(bool)
	return ok && res
}

// SendToRoom delivers one notification to every registered endpoint of the
// room, chunked, and prunes tokens reported permanently invalid.
func (d *Dispatcher) SendToRoom(roomId string, n Notification) error {
	pushTokens, err := d.store.GetPushTokens(roomId)
	if err != nil {
		return err
	}
	if len(pushTokens) == 0 {
		return nil
	}
	tokens := make([]string, 0, len(pushTokens))
	for _, t := range pushTokens {
		tokens = append(tokens, t.Token)
	}
	invalid := make([]string, 0)
	for start := 0; start < len(tokens); start += chunkSize {
		end := start + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		res, err := d.messenger.Send(tokens[start:end], n)
		if err != nil {
			globals.AppLogger.Error("could not send notification", "room", roomId, "error", err)
			continue
		}
		invalid = append(invalid, res.Invalid...)
	}
	return d.store.DeletePushTokens(roomId, invalid)
}

func daysLeftOf(room *types.RoomState, now time.Time) (int, bool) {
	target, ok := countdown.ParseTarget(room.TargetISO)
	if !ok {
		return 0, false
	}
	return countdown.DaysUntil(target, now)
}

// RunDaily announces the freshly unlocked love note + challenge, once per
// calendar day per room.
func (d *Dispatcher) RunDaily(now time.Time) {
	todayKey := countdown.DayKeyIn(now, d.loc)
	rooms, err := d.store.GetRooms()
	if err != nil {
		globals.AppLogger.Error("could not list rooms", "error", err)
		return
	}
	for roomId, room := range rooms {
		if room.LastDailyNotify == todayKey {
			continue
		}
		daysLeft, _ := daysLeftOf(room, now)
		if !d.pass(d.dailyProg, Env{RoomId: roomId, DaysLeft: daysLeft, TodayKey: todayKey}) {
			continue
		}
		err := d.SendToRoom(roomId, Notification{
			Title: "Mot + mini défi dispo ✨",
			Body:  "Le mot du jour et le mini défi sont prêts à être débloqués.",
			Data:  map[string]string{"type": "daily-unlock", "roomId": roomId, "dateKey": todayKey},
		})
		if err != nil {
			globals.AppLogger.Error("daily notification failed", "room", roomId, "error", err)
			continue
		}
		key := todayKey
		if _, err := d.store.PatchRoom(roomId, &types.RoomPatch{LastDailyNotify: &key}); err != nil {
			globals.AppLogger.Error("could not record daily notify key", "room", roomId, "error", err)
		}
	}
}

// RunJ14 sends the two-weeks-to-go reminder on the day the countdown hits 14,
// once per target date per room.
func (d *Dispatcher) RunJ14(now time.Time) {
	rooms, err := d.store.GetRooms()
	if err != nil {
		globals.AppLogger.Error("could not list rooms", "error", err)
		return
	}
	for roomId, room := range rooms {
		daysLeft, ok := daysLeftOf(room, now)
		if !ok || daysLeft != 14 {
			continue
		}
		target, _ := countdown.ParseTarget(room.TargetISO)
		targetKey := countdown.DayKeyIn(target, d.loc)
		if room.LastJ14Notify == targetKey {
			continue
		}
		if !d.pass(d.j14Prog, Env{RoomId: roomId, DaysLeft: daysLeft, TodayKey: countdown.DayKeyIn(now, d.loc)}) {
			continue
		}
		err := d.SendToRoom(roomId, Notification{
			Title: "J-14 💖",
			Body:  "Dans 14 jours, on se retrouve. Ça se rapproche !",
			Data:  map[string]string{"type": "j-14", "roomId": roomId, "targetDateKey": targetKey},
		})
		if err != nil {
			globals.AppLogger.Error("j-14 notification failed", "room", roomId, "error", err)
			continue
		}
		key := targetKey
		if _, err := d.store.PatchRoom(roomId, &types.RoomPatch{LastJ14Notify: &key}); err != nil {
			globals.AppLogger.Error("could not record j-14 notify key", "room", roomId, "error", err)
		}
	}
}

// HandleUpdate reacts to a committed document change: a playlist entry that
// was not there before triggers the new-music ping.
func (d *Dispatcher) HandleUpdate(u persistence.Update) {
	if u.After == nil || len(u.After.Playlist) == 0 {
		return
	}
	beforeKeys := make(map[string]struct{})
	if u.Before != nil {
		for _, e := range u.Before.Playlist {
			beforeKeys[e.DateKey+"|"+e.Who] = struct{}{}
		}
	}
	added := make([]types.PlaylistEntry, 0)
	for _, e := range u.After.Playlist {
		if _, ok := beforeKeys[e.DateKey+"|"+e.Who]; !ok {
			added = append(added, e)
		}
	}
	if len(added) == 0 {
		return
	}
	latest := added[0]
	title := latest.Title
	if title == "" {
		title = "une musique"
	}
	artist := ""
	if latest.Artist != "" {
		artist = fmt.Sprintf(" — %s", latest.Artist)
	}
	err := d.SendToRoom(u.RoomId, Notification{
		Title: "Nouvelle musique 🎧",
		Body:  fmt.Sprintf("%s a ajouté \"%s\"%s", content.ParticipantLabel(latest.Who), title, artist),
		Data:  map[string]string{"type": "playlist", "roomId": u.RoomId},
	})
	if err != nil {
		globals.AppLogger.Error("playlist notification failed", "room", u.RoomId, "error", err)
	}
}
