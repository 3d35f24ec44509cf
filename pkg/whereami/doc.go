// Package whereami follows the live VRChat log and reports which room the
// local user is in.
//
// VRChat writes one log file per session into a single directory and starts
// a new file every launch. A Watcher selects the newest file, tails it as it
// grows and switches to the next file as soon as one appears, delivering the
// events of all files as one ordered stream.
//
// # Basic Usage
//
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//
//	events, errs, err := whereami.Watch(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for {
//	    select {
//	    case ev, ok := <-events:
//	        if !ok {
//	            return
//	        }
//	        switch ev.Type {
//	        case whereami.EventJoiningRoom:
//	            fmt.Printf("joining %s\n", ev.Room)
//	        case whereami.EventLeftRoom:
//	            fmt.Println("left room")
//	        }
//	    case err, ok := <-errs:
//	        if !ok {
//	            return
//	        }
//	        log.Fatal(err)
//	    }
//	}
//
// Errors on the error channel are fatal: both channels close right after.
//
// To parse a single log line:
//
//	if ev := whereami.ParseLine(line); ev != nil {
//	    // process event
//	}
//
// # Platform Support
//
// Log directories are auto-detected from standard Windows locations. On
// other platforms set the directory explicitly or through VRCHAT_LOG_DIR.
//
// # Disclaimer
//
// This is an unofficial tool and is not affiliated with VRChat Inc.
package whereami
