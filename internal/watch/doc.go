// Package watch uploads material files dropped into a folder.
//
// A Watcher listens for create and write events with fsnotify. Events are
// collected until the folder has been quiet for the debounce period, then the
// pending files go through actions.Service.Upload in one call. The service
// validates size and extension as usual, so rejected files are reported
// through the same notifications the console and CLI already show.
//
// Each path is remembered with the modification time it was uploaded at.
// Saving the file again uploads a new asset; touching nothing does not.
// Failed uploads are not remembered and are retried on the next change.
package watch
