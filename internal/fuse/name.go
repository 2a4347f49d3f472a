package fuse

// DefaultName is the name of the file exposing the virtual disk.
const DefaultName = "raid5.img"
