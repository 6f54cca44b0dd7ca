// Package status implements persistence for the controller Status.
//
// The FileRepository stores and loads the snapshot as JSON on disk. The same
// structpb encoding is served by the remote keypad API, so a status file and a
// status response read the same way.
package status
