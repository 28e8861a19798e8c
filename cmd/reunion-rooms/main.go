package main

import (
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sync"

	"github.com/folkengine/goname"
	"github.com/glachaux/reunion-rooms/auth"
	"github.com/glachaux/reunion-rooms/config"
	"github.com/glachaux/reunion-rooms/globals"
	"github.com/glachaux/reunion-rooms/notify"
	"github.com/glachaux/reunion-rooms/persistence"
	"github.com/glachaux/reunion-rooms/roomsync"
	"github.com/glachaux/reunion-rooms/types"
	"github.com/glachaux/reunion-rooms/ws"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/pflag"
)

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
	addr       = pflag.String("addr", "localhost:8000", "ws service address (including port)")
	sslCert    = pflag.String("ssl-cert", "", "SSL cert for websocket (optional)")
	sslKey     = pflag.String("ssl-key", "", "SSL key for websocket (optional)")

	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	hubs     map[string]*ws.Hub = make(map[string]*ws.Hub)
	hubsLock sync.RWMutex

	globalConfig *config.Config
	store        *persistence.Store
)

func main() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)
	pflag.Parse()

	var err error
	globalConfig, err = config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	if globalConfig.LogLevel != "" {
		globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))
	}

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	if persister == nil {
		panic("no persistence configured")
	}
	store = persistence.NewStore(persister)
	defer store.Close()

	go func() {
		<-c
		globals.AppLogger.Info("interrupted, shutting down")
		store.Close()
		os.Exit(0)
	}()

	dispatcher, err := notify.NewDispatcher(store, notify.NewFCMMessenger(globalConfig), globalConfig)
	if err != nil {
		panic(err)
	}
	if err := dispatcher.Start(); err != nil {
		panic(err)
	}
	defer dispatcher.Stop()

	setupRoutes()
	// start HTTP server
	if *sslCert != "" && *sslKey != "" {
		err = http.ListenAndServeTLS(*addr, *sslCert, *sslKey, nil)
	} else {
		err = http.ListenAndServe(*addr, nil)
	}
	globals.AppLogger.Error("stopped listening", "error", err)
}

func setupRoutes() {
	router := mux.NewRouter()
	router.HandleFunc("/rooms", createRoomHandler).Methods(http.MethodPost)
	router.HandleFunc("/rooms/{room:[a-z0-9-]+}", websocketHandler).Methods(http.MethodGet)
	router.HandleFunc("/rooms/{room:[a-z0-9-]+}/join", joinRoomHandler).Methods(http.MethodPost)
	router.HandleFunc("/rooms/{room:[a-z0-9-]+}/push-tokens", pushTokenHandler).Methods(http.MethodPost)
	http.Handle("/", router)
}

// getHub returns the hub of the room, creating it on first use.
func getHub(roomId string) *ws.Hub {
	hubsLock.RLock()
	if hub, ok := hubs[roomId]; ok {
		hubsLock.RUnlock()
		return hub
	}
	hubsLock.RUnlock()
	hubsLock.Lock()
	defer hubsLock.Unlock()
	if hub, ok := hubs[roomId]; ok {
		return hub
	}
	hub := ws.NewHub(roomId, globalConfig, store)
	hubs[roomId] = hub
	go hub.Run()
	return hub
}

// participantId resolves who the connection belongs to: a verified OIDC
// identity if an id token is presented, else the self-declared "who" query
// parameter, else a generated guest name.
func participantId(r *http.Request) (string, error) {
	vals := r.URL.Query()
	if idToken := vals.Get("id_token"); idToken != "" {
		if provider := vals.Get("provider"); provider != "" {
			who, err := auth.Authenticate(idToken, provider, globalConfig)
			if err != nil {
				return "", err
			}
			if who != "" {
				return who, nil
			}
		}
	}
	if who := vals.Get("who"); who != "" {
		return who, nil
	}
	return goname.New(goname.FantasyMap).FirstLast() + " (guest)", nil
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func createRoomHandler(w http.ResponseWriter, r *http.Request) {
	req := struct {
		Who string `json:"who"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Who == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing participant id"})
		return
	}
	code, room, err := roomsync.CreateRoom(store, req.Who, globalConfig.RoomsConfig.CodeAttempts)
	if err != nil {
		globals.AppLogger.Error("could not create room", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"room": code, "state": room})
}

func joinRoomHandler(w http.ResponseWriter, r *http.Request) {
	roomId := roomsync.NormalizeRoomCode(mux.Vars(r)["room"])
	req := struct {
		Who string `json:"who"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Who == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing participant id"})
		return
	}
	room, err := roomsync.JoinRoom(store, roomId, req.Who)
	switch err {
	case nil:
		writeJSON(w, http.StatusOK, map[string]interface{}{"room": roomId, "state": room})
	case persistence.ErrRoomNotFound:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
	case roomsync.ErrPermissionDenied:
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "room is full"})
	default:
		globals.AppLogger.Error("could not join room", "room", roomId, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func pushTokenHandler(w http.ResponseWriter, r *http.Request) {
	roomId := roomsync.NormalizeRoomCode(mux.Vars(r)["room"])
	req := struct {
		Token     string `json:"token"`
		UserAgent string `json:"userAgent"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing token"})
		return
	}
	if _, err := store.GetRoom(roomId); err == persistence.ErrRoomNotFound {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "room not found"})
		return
	}
	now := types.NowMs()
	token := types.PushToken{
		Token:      req.Token,
		UserAgent:  req.UserAgent,
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := store.StorePushToken(roomId, token); err != nil {
		globals.AppLogger.Error("could not store push token", "room", roomId, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"room": roomId})
}

// Handle incoming websockets
func websocketHandler(w http.ResponseWriter, r *http.Request) {
	roomId := roomsync.NormalizeRoomCode(mux.Vars(r)["room"])
	if roomId == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	who, err := participantId(r)
	if err != nil {
		// a presented token that fails verification is fatal for the connection
		globals.AppLogger.Error("authentication failed", "error", err)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	hub := getHub(roomId)

	// Upgrade HTTP request to Websocket
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		globals.AppLogger.Error("websocket upgrade error", "error", err)
		return
	}

	// When this frame returns close the Websocket
	defer conn.Close() //nolint

	doneChan := make(chan struct{})
	c := ws.NewClient(hub, conn, who, doneChan)

	// Add to the hub
	hub.Register <- c
	defer func() {
		hub.Unregister <- c
	}()
	c.Add(2)
	go c.ReadLoop()
	go c.WriteLoop()

	if err := c.Engine().Subscribe(roomId); err != nil {
		globals.AppLogger.Info("subscription rejected", "room", roomId, "who", who, "error", err)
		c.SendError(err)
		conn.Close()
	}
	<-doneChan
}
