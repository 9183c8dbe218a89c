package main

import (
	"bytes"
	"flag"
	"log"
	"net"
	"time"

	"github.com/gatasproject/gatas-server/pkg/model"
	"github.com/gatasproject/gatas-server/pkg/wire"
)

var (
	serverAddr = flag.String("server", "localhost:3000", "GATAS server address")
	lat        = flag.Float64("lat", 52.3086, "Ownship latitude")
	lon        = flag.Float64("lon", 4.7639, "Ownship longitude")
	height     = flag.Int("height", 500, "Ownship ellipsoid height in meters")
	icao       = flag.Uint("icao", 0x484123, "Ownship ICAO address")
)

// main is a test program that speaks the device protocol: it sends one
// ownship position request and prints whatever traffic comes back.
func main() {
	flag.Parse()

	log.Println("GATAS Protocol Probe")
	log.Println("=====================================")
	log.Printf("Server: %s\n", *serverAddr)
	log.Printf("Ownship: %06X at %.4f, %.4f, %dm\n", *icao, *lat, *lon, *height)

	conn, err := net.Dial("udp", *serverAddr)
	if err != nil {
		log.Fatalf("Failed to dial server: %v", err)
	}
	defer conn.Close()

	request := wire.EncodeOwnshipPositionRequestV1(model.OwnshipPosition{
		Epoch:           uint32(time.Now().Unix()),
		ID:              uint32(*icao),
		Latitude:        *lat,
		Longitude:       *lon,
		EllipsoidHeight: *height,
	})
	if _, err := conn.Write(request); err != nil {
		log.Fatalf("Failed to send request: %v", err)
	}

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	buf := make([]byte, 2048)
	n, err := conn.Read(buf)
	if err != nil {
		log.Fatalf("No reply: %v", err)
	}
	reply := buf[:n]

	switch {
	case bytes.Equal(reply, wire.FallbackNoData):
		log.Println("Reply: no traffic near the reported position")
		return
	case bytes.Equal(reply, wire.FallbackTimeout):
		log.Println("Reply: server handler timed out")
		return
	}

	log.Println("=====================================")
	count := 0
	for _, frame := range bytes.Split(reply, []byte{wire.FrameDelimiter}) {
		if len(frame) < 2 {
			continue
		}
		payload, err := wire.DecodeCOBS(frame)
		if err != nil {
			log.Printf("Undecodable frame: %v", err)
			continue
		}
		if len(payload) == 0 || payload[0] != wire.TagAircraftPositionV1 {
			log.Printf("Skipping frame with tag %d", payload[0])
			continue
		}
		p, h, err := wire.DecodeAircraftPositionV1(payload)
		if err != nil {
			log.Printf("Bad aircraft frame: %v", err)
			continue
		}
		count++
		log.Printf("%2d. %06X %-12s %.4f,%.4f h=%dm gs=%.0fm/s vs=%.1fm/s ground=%v",
			count, p.ID, p.CallSign, p.Latitude, p.Longitude, h,
			p.GroundSpeed, p.VerticalSpeed, p.OnGround)
	}
	log.Printf("Received %d traffic contacts", count)
}
