package main

import (
	"bytes"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	_ "github.com/mattn/go-sqlite3"
	"github.com/standardsmanual/standards/auth"
	"github.com/standardsmanual/standards/cmsstore"
	"github.com/standardsmanual/standards/core"
	"github.com/standardsmanual/standards/notify"
	"github.com/standardsmanual/standards/sqlstore"
	"github.com/standardsmanual/standards/sqlstore/mysql"
	"github.com/standardsmanual/standards/sqlstore/sqlite3"
	"github.com/standardsmanual/standards/util"
	"github.com/standardsmanual/standards/web"
	"github.com/xo/dburl"
	"golang.org/x/crypto/ssh/terminal"
)

func init() {
	log.SetFlags(0) // no log prefixes, on most systems systemd-journald adds them
}

func main() {

	var dbArg string // is in both FlagSets

	// default FlagSet

	// Your reverse proxy must not strip the prefix. So if you're using nginx, the "proxy_pass" value should not end with a slash.
	var base = flag.String("base", "", "strip off this `prefix` from every HTTP request and prepend it to every link")
	flag.StringVar(&dbArg, "db", "sqlite3:standards.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&cache=shared", "sql database url, see github.com/xo/dburl")
	var listenAddr = flag.String("listen", "127.0.0.1:8080", "serve HTTP content at this `ip:port`")
	var storeArg = flag.String("store", "sql", `content store backend, "sql" or "cms" (cms reads config/store.ini)`)

	// init FlagSet

	var initFlags = flag.NewFlagSet("init", flag.ExitOnError)

	initFlags.StringVar(&dbArg, "db", "sqlite3:standards.sqlite3?_busy_timeout=10000&_journal=WAL&_sync=NORMAL&cache=shared", "sql database url, see github.com/xo/dburl") // copied from above
	var initInsert = initFlags.Bool("insert", false, "creates the given group or user")
	var initJoin = initFlags.Bool("join", false, "joins the given user to the given group")
	var initMakeApprover = initFlags.Bool("make-approver", false, "joins the given user to the approvers group")
	var groupname = initFlags.String("group", "", "specifies a group `name`")
	var username = initFlags.String("user", "", "specifies a user `email`")
	var displayname = initFlags.String("name", "", "specifies the display `name` of a new user")

	if len(os.Args) > 1 && os.Args[1] == "init" {
		initFlags.Parse(os.Args[2:])
	} else {
		flag.Parse()
	}

	// database

	dbURL, err := dburl.Parse(dbArg)
	if err != nil {
		log.Printf("could not parse database url: %v", err)
		return
	}

	sqlDB, err := sql.Open(dbURL.Driver, dbURL.DSN)
	if err != nil {
		log.Printf("could not open sql database: %v", err)
		return
	}

	if err = sqlDB.Ping(); err != nil {
		log.Printf("could not ping sql database: %v", err)
		return
	}

	log.Printf("using database %s", dbURL.String())

	// base

	*base = strings.Trim(*base, "/")
	if *base != "" {
		*base = "/" + *base
	}

	// assemble stuff

	var sessionStore scs.Store
	switch dbURL.Driver {
	case "mysql":
		sessionStore = mysql.NewSessionStore(sqlDB)
	case "sqlite3":
		sessionStore = sqlite3.NewSessionStore(sqlDB)
	default:
		log.Printf("unknown database backend: %s", dbURL.Driver)
		return
	}

	db := &core.CoreDB{}

	switch *storeArg {
	case "cms":
		cfg, err := util.Ini("store.ini")
		if err != nil {
			log.Printf("could not read store config: %v", err)
			return
		}
		client := cmsstore.NewClient(cfg["space"], cfg["environment"], cfg["token"], cfg["locale"])
		if cfg["url"] != "" {
			client.BaseURL = cfg["url"]
		}
		db.Store = client
	case "sql":
		db.Store = sqlstore.NewEntryDB(sqlDB)
	default:
		log.Printf("unknown content store backend: %s", *storeArg)
		return
	}

	db.Auth = &auth.AuthDB{
		GroupDB: sqlstore.NewGroupDB(sqlDB),
		UserDB:  sqlstore.NewUserDB(sqlDB),
	}

	// notifications are optional, without config they go to the log

	if cfg, err := util.Ini("notify.ini"); err == nil {
		db.Notifier = notify.NewClient(cfg["url"], cfg["api_key"])
		db.Templates = core.NotifyTemplates{
			Submitted:          cfg["template_submitted"],
			SubmittedAwareness: cfg["template_submitted_awareness"],
			SubmittedApprovers: cfg["template_submitted_approvers"],
			Approved:           cfg["template_approved"],
			Rejected:           cfg["template_rejected"],
			Published:          cfg["template_published"],
			PublishedAwareness: cfg["template_published_awareness"],
		}
	} else {
		db.Notifier = notify.Log{}
		db.Templates = core.NotifyTemplates{
			Submitted:          "submitted",
			SubmittedAwareness: "submitted-awareness",
			SubmittedApprovers: "submitted-approvers",
			Approved:           "approved",
			Rejected:           "rejected",
			Published:          "published",
			PublishedAwareness: "published-awareness",
		}
	}

	db.Init(sessionStore, *base)

	defer func() {
		log.Println("closing database")
		sqlDB.Close()
	}()

	if err := ensureStages(db); err != nil {
		log.Printf("could not ensure stage records: %v", err)
		return
	}

	// init

	if initFlags.Parsed() {
		switch {
		case *initInsert:
			if *groupname != "" {
				insertGroup(db, *groupname)
			}
			if *username != "" {
				insertUser(db, *displayname, *username)
			}
		case *initJoin:
			if *groupname != "" && *username != "" {
				join(db, *groupname, *username)
			}
		case *initMakeApprover:
			if *username != "" {
				join(db, auth.ApproversGroup, *username)
			}
		}
		return
	}

	listen(db, *listenAddr, *base)
}

// ensureStages creates the stage reference records on first run.
func ensureStages(db *core.CoreDB) error {
	for _, code := range core.StageCodes {
		_, err := db.Stages.ResolveStage(code)
		if errors.Is(err, core.ErrNotFound) {
			_, err = db.Store.CreateEntry(core.TypeStage, map[string]interface{}{
				"number": int(code),
				"title":  code.Title(),
			})
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func insertGroup(db *core.CoreDB, name string) {
	if err := db.Auth.InsertGroup(name); err != nil {
		log.Printf(`error creating group "%s": %v`, name, err)
	}
}

func insertUser(db *core.CoreDB, name, email string) {

	if name == "" {
		name = email
	}

	fmt.Printf("password for user %s: ", email)
	pass1, err := terminal.ReadPassword(0)
	fmt.Println()
	if err != nil {
		log.Printf("error reading password: %v", err)
		return
	}

	fmt.Printf("repeat password: ")
	pass2, err := terminal.ReadPassword(0)
	fmt.Println()
	if err != nil {
		log.Printf("error reading password: %v", err)
		return
	}

	if !bytes.Equal(pass1, pass2) {
		log.Printf("passwords don't match")
		return
	}

	user, err := db.Auth.InsertUser(name, email)
	if err != nil {
		log.Printf("error creating user %s: %v", email, err)
		return
	}

	if err := db.Auth.SetPassword(user, string(pass1)); err != nil {
		log.Printf("error setting password: %v", err)
		return
	}
}

func join(db *core.CoreDB, groupname string, email string) {

	group, err := db.Auth.GetGroupByName(groupname)
	if err != nil {
		log.Printf("error getting group %s: %v", groupname, err)
		return
	}

	user, err := db.Auth.GetUserByEmail(email)
	if err != nil {
		log.Printf("error getting user %s: %v", email, err)
		return
	}

	if err := db.Auth.Join(group, user); err != nil {
		log.Printf("error joining: %v", err)
		return
	}
}

func listen(db *core.CoreDB, addr string, base string) {

	// mux
	//
	// golang mux recovers from panics, so the program won't crash

	var waitingHandlers sync.WaitGroup

	mux := http.NewServeMux()

	util.HandlePrefix(mux, base+"/static", http.FileServer(http.Dir("static")))

	router := web.NewRouter(db, base)
	util.HandlePrefix(
		mux,
		base,
		http.HandlerFunc(
			func(w http.ResponseWriter, req *http.Request) {
				waitingHandlers.Add(1)
				defer waitingHandlers.Done()
				router.ServeHTTP(w, req)
			},
		),
	)

	// listener and listen

	sigintChannel := make(chan os.Signal, 1)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		log.Println(err)
		return
	}

	log.Printf("listening to %s", addr)

	httpSrv := &http.Server{
		Handler:      db.SessionManager.LoadAndSave(mux),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := httpSrv.Serve(listener); err != nil {

			// don't panic, we want a graceful shutdown
			if err != http.ErrServerClosed {
				log.Printf("error listening: %v", err)
			}

			// ensure graceful shutdown
			sigintChannel <- os.Interrupt
		}
	}()

	// graceful shutdown

	signal.Notify(sigintChannel, os.Interrupt, syscall.SIGTERM) // SIGINT (Interrupt) or SIGTERM
	<-sigintChannel

	log.Println("shutting down")
	httpSrv.Close()

	waitingHandlers.Wait()
}
