// Package sim is a scripted host: it builds an object graph from a scene
// file and plays the part of the uncoordinated host code that keeps
// writing base values into rate attributes.
//
// A scene names the node the host "chooses" as its boosted entity and a
// list of drivers. A driver overwrites one attribute with a fixed value on
// a schedule (every N ticks, or once at tick N), or destroys a node. The
// agent attaches to Host.Target and the drivers exercise rebase handling.
package sim
