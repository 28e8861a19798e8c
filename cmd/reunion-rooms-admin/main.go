package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/glachaux/reunion-rooms/config"
	"github.com/glachaux/reunion-rooms/globals"
	"github.com/glachaux/reunion-rooms/persistence"
	"github.com/glachaux/reunion-rooms/roomsync"
	"github.com/glachaux/reunion-rooms/types"
	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// A very simple CLI tool for the administration of reunion rooms and push endpoints.

var (
	configPath = pflag.StringP("config", "c", "", "path to config file or directory")
)

func main() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	go func() {
		<-c
		globals.AppLogger.Error("interrupted!")
		os.Exit(1)
	}()

	flagSet := config.GetFlagSet()
	pflag.CommandLine.AddFlagSet(flagSet)

	pflag.Parse()

	globalConfig, err := config.ReadConfiguration(*configPath, flagSet)
	if err != nil {
		panic(err)
	}

	globals.AppLogger.SetLevel(hclog.LevelFromString(globalConfig.LogLevel))

	persister, err := persistence.NewPersister(globalConfig)
	if err != nil {
		panic(err)
	}
	if persister == nil {
		panic("no persistence configured")
	}
	defer persister.Close()
	store := persistence.NewStore(persister)

	var cmdShow = &cobra.Command{
		Use:   "show",
		Short: "Show rooms or push tokens",
		Long:  `show is for printing room or push token information.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Show: " + strings.Join(args, " "))
		},
	}
	var cmdShowRooms = &cobra.Command{
		Use:   "rooms",
		Short: "Show rooms",
		Long:  `show rooms lists all room documents.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			rooms, err := persister.GetRooms()
			if err != nil {
				globals.AppLogger.Error("could not get rooms", "error", err)
				return
			}
			r, err := json.Marshal(rooms)
			if err != nil {
				globals.AppLogger.Error("could not marshal rooms", "error", err)
				return
			}
			fmt.Println(string(r))
		},
	}
	var cmdShowRoom = &cobra.Command{
		Use:   "room [room code]",
		Short: "Show room",
		Long:  `show room prints the document of the room with the given code.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			room, err := persister.GetRoom(roomsync.NormalizeRoomCode(args[0]))
			if err != nil {
				globals.AppLogger.Error("could not get room", "error", err)
				return
			}
			r, err := json.Marshal(room)
			if err != nil {
				globals.AppLogger.Error("could not marshal room", "error", err)
				return
			}
			fmt.Println(string(r))
		},
	}
	var cmdShowTokens = &cobra.Command{
		Use:   "tokens [room code]",
		Short: "Show push tokens",
		Long:  `show tokens lists the registered push endpoints of a room.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			tokens, err := persister.GetPushTokens(roomsync.NormalizeRoomCode(args[0]))
			if err != nil {
				globals.AppLogger.Error("could not get push tokens", "error", err)
				return
			}
			t, err := json.Marshal(tokens)
			if err != nil {
				globals.AppLogger.Error("could not marshal push tokens", "error", err)
				return
			}
			fmt.Println(string(t))
		},
	}
	var cmdCreate = &cobra.Command{
		Use:   "create [owner id]",
		Short: "Create room",
		Long:  `create makes a fresh room with a generated code, owned by the given participant.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			code, room, err := roomsync.CreateRoom(store, args[0], globalConfig.RoomsConfig.CodeAttempts)
			if err != nil {
				globals.AppLogger.Error("could not create room", "error", err)
				return
			}
			out, err := json.Marshal(map[string]interface{}{"room": code, "state": room})
			if err != nil {
				globals.AppLogger.Error("could not marshal room", "error", err)
				return
			}
			fmt.Println(string(out))
		},
	}
	var cmdDelete = &cobra.Command{
		Use:   "delete",
		Short: "Delete room or push tokens",
		Long:  `delete removes a room (with its push tokens) or individual push tokens.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Delete: " + strings.Join(args, " "))
		},
	}
	var cmdDeleteRoom = &cobra.Command{
		Use:   "room [room code]",
		Short: "Delete room",
		Long:  `delete room removes the room with the given code.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			err := persister.DeleteRoom(roomsync.NormalizeRoomCode(args[0]))
			if err != nil {
				globals.AppLogger.Error("could not delete room", "error", err)
				return
			}
		},
	}
	var cmdDeleteTokens = &cobra.Command{
		Use:   "tokens [room code] [token...]",
		Short: "Delete push tokens",
		Long:  `delete tokens removes the given push endpoints from a room.`,
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			err := persister.DeletePushTokens(roomsync.NormalizeRoomCode(args[0]), args[1:])
			if err != nil {
				globals.AppLogger.Error("could not delete push tokens", "error", err)
				return
			}
		},
	}
	var pruneDays int
	var cmdPruneTokens = &cobra.Command{
		Use:   "prune [room code]",
		Short: "Prune stale push tokens",
		Long:  `prune removes push endpoints of a room that have not been seen for the given number of days.`,
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			roomId := roomsync.NormalizeRoomCode(args[0])
			tokens, err := persister.GetPushTokens(roomId)
			if err != nil {
				globals.AppLogger.Error("could not get push tokens", "error", err)
				return
			}
			cutoff := time.Now().AddDate(0, 0, -pruneDays).UnixNano() / int64(time.Millisecond)
			stale := make([]string, 0)
			for _, t := range tokens {
				if t.LastSeenAt < cutoff {
					stale = append(stale, t.Token)
				}
			}
			if err := persister.DeletePushTokens(roomId, stale); err != nil {
				globals.AppLogger.Error("could not delete push tokens", "error", err)
				return
			}
			fmt.Printf("pruned %d of %d tokens\n", len(stale), len(tokens))
		},
	}
	cmdPruneTokens.Flags().IntVar(&pruneDays, "days", 90, "prune tokens unseen for this many days")
	var cmdSet = &cobra.Command{
		Use:   "set",
		Short: "Create/update a room document",
		Long:  `set creates or overwrites a room document.`,
		Args:  cobra.MinimumNArgs(0),
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Set: " + strings.Join(args, " "))
		},
	}
	var cmdSetRoom = &cobra.Command{
		Use:   "room [room code] [room definition]",
		Short: "Set room",
		Long:  `set room creates or overwrites the room document. If the definition is "-", it is read from STDIN.`,
		Args:  cobra.MinimumNArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			var r io.Reader
			if args[1] == "-" {
				r = os.Stdin
			} else {
				r = bytes.NewReader([]byte(args[1]))
			}
			dec := json.NewDecoder(r)
			room := types.RoomState{}
			err := dec.Decode(&room)
			if err != nil {
				globals.AppLogger.Error("could not decode room", "error", err)
				return
			}
			roomId := roomsync.NormalizeRoomCode(args[0])
			if roomId == "" {
				globals.AppLogger.Error("no room code")
				return
			}
			room.MergeDefaults()
			if room.Owner == "" {
				globals.AppLogger.Warn("no owner set")
			}
			err = persister.StoreRoom(roomId, room)
			if err != nil {
				globals.AppLogger.Error("could not store room", "error", err)
				return
			}
		},
	}
	var rootCmd = &cobra.Command{Use: "reunion-rooms-admin"}
	rootCmd.AddCommand(cmdShow)
	rootCmd.AddCommand(cmdCreate)
	rootCmd.AddCommand(cmdDelete)
	rootCmd.AddCommand(cmdSet)
	rootCmd.AddCommand(cmdPruneTokens)
	cmdShow.AddCommand(cmdShowRooms, cmdShowRoom, cmdShowTokens)
	cmdDelete.AddCommand(cmdDeleteRoom, cmdDeleteTokens)
	cmdSet.AddCommand(cmdSetRoom)
	rootCmd.Execute()
}
