// Package correlation maps operator replies back to the line item they fulfil.
//
// When the allocation engine cannot fill a line item, an outbound Request asks
// an operator for the data. The request carries a Reference to
// (order id, line item index) in two forms:
//
//   - Text: "Ref: <orderId> | Idx: <n>", embedded in the human-readable
//     message so it survives a quote-reply through chat transports.
//   - Payload: "ref1:<len>:<orderId>:<n>", a length-prefixed form for
//     transports with a metadata channel (callback data). It decodes
//     unambiguously whatever the order id contains.
//
// The Resolver writes the operator's lines into the referenced line item in
// one store transaction. The write is last-write-wins: data the engine
// auto-filled in the meantime is overwritten, and Result.Overwrote says so.
package correlation
