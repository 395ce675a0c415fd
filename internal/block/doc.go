// Package block decodes NEAR streamer messages into the flat action and event
// rows that entity extraction works on. Only the fields extraction reads are
// decoded; everything else in the message is ignored.
package block
