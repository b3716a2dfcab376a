/*
Package watch implements a scheduled outreach pass over the Bluesky network.

A pass searches for posts mentioning the product, asks a language model to
classify each one, and reacts: a like for every relevant post, followed by a
corrective reply (spam links), an urgent notification (problem reports), or an
acknowledgement notification. An in-memory engagement set, seeded from the
account's own like history, keeps overlapping runs from liking the same post twice.

Posts are processed strictly one at a time. Only the search fan-out is concurrent.
*/
package watch
