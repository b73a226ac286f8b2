/*
The sync package implements MultiSync's device sync engine. It copies a local
directory tree into the application sandbox of one or more devices, one device
at a time.

There are three moving parts:
1) The Walker lists every file in the source directory.
2) A task syncs a single Job: it opens the device's application channel, and
   for each file creates the remote directory, reports progress, and copies
   the file. Remote paths are computed by MapRemotePath.
3) The Queue holds the pending Jobs. It runs exactly one task at a time and
   only starts the next task once the previous one has finished.

Tasks never touch the Job they're syncing. Instead, they send Events over a
channel, and the Queue applies them to the Job and forwards them to a Sink.
This way, everything a Sink sees is owned by a single goroutine.

Every sync is a full copy. Files that already exist on the device are
overwritten, and files that were removed locally aren't removed from the
device.
*/
package sync
