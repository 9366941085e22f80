// Command lsnp-peer runs one LSNP peer process: it discovers other
// peers on the LAN, exchanges profiles/posts/DMs/likes/follows/files
// over UDP, and exposes a line-oriented command surface on stdin built
// on a flag+bufio.Scanner shape.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/controller"
	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/discovery"
	"github.com/ImaginaryLogs/CSNETWK-MCO3/internal/logging"
)

var (
	userID      = flag.String("user", "", "your user id (required)")
	displayName = flag.String("display-name", "", "your display name (defaults to -user)")
	ip          = flag.String("ip", "", "this host's IP as advertised to peers (auto-detected if empty)")
	port        = flag.Int("port", 50999, "UDP port to bind and advertise")
	broadcast   = flag.String("broadcast", "255.255.255.255", "LAN broadcast address")
	baseDir     = flag.String("basedir", "./lsnp-data", "directory under which received files are stored")
	periodic    = flag.Duration("periodic", 300*time.Second, "interval between PROFILE broadcasts and quiet-peer PINGs")
	verbose     = flag.Bool("verbose", false, "enable debug logging")
)

func main() {
	flag.Parse()

	if *userID == "" {
		fmt.Fprintln(os.Stderr, "lsnp-peer: -user is required")
		os.Exit(2)
	}
	if *displayName == "" {
		*displayName = *userID
	}

	log := logging.New()
	logging.SetVerbose(log, *verbose)

	advertiseIP := *ip
	if advertiseIP == "" {
		detected, err := discovery.LocalIPv4()
		if err != nil {
			log.WithError(err).Fatal("lsnp-peer: could not auto-detect IP; pass -ip")
		}
		advertiseIP = detected
	}

	ctrl, err := controller.New(controller.Config{
		UserID:           *userID,
		DisplayName:      *displayName,
		IP:               advertiseIP,
		Port:             *port,
		BroadcastAddr:    *broadcast,
		BaseDir:          *baseDir,
		PeriodicInterval: *periodic,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("lsnp-peer: init controller")
	}

	ctx, cancel := context.WithCancel(context.Background())

	runErr := make(chan error, 1)
	go func() { runErr <- ctrl.Run(ctx) }()

	log.Infof("lsnp-peer: %s listening as %s", *userID, ctrl.FullID())
	fmt.Printf("%s> ", *userID)

	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			runCommand(ctx, ctrl, log, line)
		}
		if line == "quit" {
			break
		}
		fmt.Printf("%s> ", *userID)
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Error("lsnp-peer: reading stdin")
	}

	cancel()
	<-runErr
}

func runCommand(ctx context.Context, ctrl *controller.Controller, log *logrus.Logger, line string) {
	fields := strings.SplitN(line, " ", 3)
	cmd := fields[0]

	switch cmd {
	case "peers":
		for _, p := range ctrl.Peers() {
			fmt.Printf("  %s (%s) last seen %s\n", p.FullID(), p.DisplayName, p.LastSeen.Format(time.RFC3339))
		}

	case "dms":
		for _, dm := range ctrl.DMs() {
			fmt.Printf("  [%s] %s: %s\n", time.Unix(dm.Timestamp, 0).Format(time.Kitchen), dm.From, dm.Content)
		}

	case "dm":
		if len(fields) < 3 {
			fmt.Println("  usage: dm <user> <message>")
			return
		}
		if err := ctrl.SendDM(ctx, fields[1], fields[2]); err != nil {
			log.Errorf("dm: %v", err)
		}

	case "post":
		if len(fields) < 2 {
			fmt.Println("  usage: post <content>")
			return
		}
		content := line[len(cmd)+1:]
		if err := ctrl.Post(ctx, content); err != nil {
			log.Errorf("post: %v", err)
		}

	case "myposts":
		for _, p := range ctrl.MyPosts() {
			fmt.Printf("  %s: %s\n", p.ID, p.Content)
		}

	case "feed":
		for _, p := range ctrl.PostsSeen() {
			fmt.Printf("  %s from %s: %s\n", p.ID, p.Author, p.Content)
		}

	case "like":
		if len(fields) < 3 {
			fmt.Println("  usage: like <post_id> <user>")
			return
		}
		if err := ctrl.Like(ctx, fields[2], fields[1]); err != nil {
			log.Errorf("like: %v", err)
		}

	case "follow":
		if len(fields) < 2 {
			fmt.Println("  usage: follow <user>")
			return
		}
		if err := ctrl.Follow(ctx, fields[1]); err != nil {
			log.Errorf("follow: %v", err)
		}

	case "unfollow":
		if len(fields) < 2 {
			fmt.Println("  usage: unfollow <user>")
			return
		}
		if err := ctrl.Unfollow(ctx, fields[1]); err != nil {
			log.Errorf("unfollow: %v", err)
		}

	case "broadcast":
		if err := ctrl.BroadcastProfile(); err != nil {
			log.Errorf("broadcast: %v", err)
		}

	case "ping":
		if err := ctrl.Ping(); err != nil {
			log.Errorf("ping: %v", err)
		}

	case "ttl":
		if len(fields) < 2 {
			fmt.Println("  usage: ttl <seconds>")
			return
		}
		seconds, err := strconv.Atoi(fields[1])
		if err != nil {
			fmt.Println("  ttl: not a number")
			return
		}
		ctrl.SetTTL(seconds)

	case "sendfile":
		if len(fields) < 3 {
			fmt.Println("  usage: sendfile <user> <path> [description]")
			return
		}
		rest := strings.SplitN(fields[2], " ", 2)
		path := rest[0]
		description := ""
		if len(rest) == 2 {
			description = rest[1]
		}
		if err := ctrl.SendFile(ctx, fields[1], path, description); err != nil {
			log.Errorf("sendfile: %v", err)
		}

	case "acceptfile":
		if len(fields) < 2 {
			fmt.Println("  usage: acceptfile <fileid>")
			return
		}
		if err := ctrl.AcceptFile(ctx, fields[1]); err != nil {
			log.Errorf("acceptfile: %v", err)
		}

	case "rejectfile":
		if len(fields) < 2 {
			fmt.Println("  usage: rejectfile <fileid>")
			return
		}
		if err := ctrl.RejectFile(ctx, fields[1]); err != nil {
			log.Errorf("rejectfile: %v", err)
		}

	case "pendingfiles":
		for _, tr := range ctrl.PendingFiles() {
			fmt.Printf("  %s\n", tr.FileID)
		}

	case "transfers":
		for _, tr := range ctrl.Transfers() {
			fmt.Printf("  %s (%s)\n", tr.FileID, tr.State())
		}

	case "verbose":
		verbose := log.GetLevel() != logrus.DebugLevel
		logging.SetVerbose(log, verbose)
		fmt.Printf("  verbose logging: %v\n", verbose)

	case "quit":
		// handled by the caller after this returns

	default:
		fmt.Printf("  unknown command %q\n", cmd)
	}
}
