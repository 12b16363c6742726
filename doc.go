// Package attgatt implements the core of a Bluetooth Low Energy
// Attribute Protocol (ATT) and Generic Attribute Profile (GATT) engine:
// an attribute database, a request dispatcher that decodes ATT PDUs and
// drives it, a subscription-gated notifier, and the client-side
// counterpart for discovery, reads, writes, and notifications.
//
// This package does not talk to any radio. It assumes an HCI
// controller, an L2CAP channel multiplexer, and connection lifecycle
// management already exist somewhere below it and hands it
// pre-demultiplexed ATT PDUs; Server.HandleRequest and Client.Deliver
// are the seams where that transport plugs in.
//
// A minimal server:
//
//	srv := attgatt.NewServer("my-device", acl, 64)
//	svc := srv.AddService(attgatt.MustParseUUID("0000180f-0000-1000-8000-00805f9b34fb"))
//	svc.AddCharacteristicReadOnly(
//		attgatt.MustParseUUID("00002a19-0000-1000-8000-00805f9b34fb"),
//		attgatt.PropRead|attgatt.PropNotify,
//		attgatt.NewFixedValue([]byte{100}),
//	)
//	svc.Build()
//	srv.Build()
//
// Every inbound PDU (already stripped of its HCI/L2CAP envelope and
// re-framed for L2CAP by the caller) is then handed to
// srv.HandleRequest, and the returned bytes, if any, sent back over the
// same link.
package attgatt
