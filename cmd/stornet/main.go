package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	stdlog "log"

	"github.com/stornetlabs/stornet/internal/beacon"
	"github.com/stornetlabs/stornet/internal/commitment"
	"github.com/stornetlabs/stornet/internal/crypto"
	"github.com/stornetlabs/stornet/internal/crypto/ed25519"
	"github.com/stornetlabs/stornet/internal/engine"
	"github.com/stornetlabs/stornet/internal/epoch"
	"github.com/stornetlabs/stornet/internal/prover"
	"github.com/stornetlabs/stornet/pkg/db/pebble"
	"github.com/stornetlabs/stornet/pkg/gateway"
	"github.com/stornetlabs/stornet/pkg/log"
)

type ProviderKeyInfo struct {
	Ed25519Pub string `json:"ed25519_public_key"`
	Ed25519Prv string `json:"ed25519_private_key"`
	Stake      uint64 `json:"stake"`
}

func generateKeyInfo(stake uint64) (ProviderKeyInfo, error) {
	pub, prv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return ProviderKeyInfo{}, err
	}
	return ProviderKeyInfo{
		Ed25519Pub: hex.EncodeToString(pub),
		Ed25519Prv: hex.EncodeToString(prv),
		Stake:      stake,
	}, nil
}

func loadKeyInfo(filename string) (ProviderKeyInfo, error) {
	jsonData, err := os.ReadFile(filename)
	if err != nil {
		return ProviderKeyInfo{}, fmt.Errorf("error reading file: %w", err)
	}
	var info ProviderKeyInfo
	if err := json.Unmarshal(jsonData, &info); err != nil {
		return ProviderKeyInfo{}, fmt.Errorf("error unmarshaling JSON: %w", err)
	}
	return info, nil
}

func (p ProviderKeyInfo) publicKey() (crypto.ProviderPublicKey, error) {
	raw, err := hex.DecodeString(p.Ed25519Pub)
	if err != nil {
		return crypto.ProviderPublicKey{}, err
	}
	var key crypto.ProviderPublicKey
	copy(key[:], raw)
	return key, nil
}

// main runs the proof-of-storage engine.
// go run main.go -keygen provider.json
// go run main.go -demo -keys provider.json
func main() {
	keygen := flag.String("keygen", "", "write a fresh provider key file and exit")
	demo := flag.Bool("demo", false, "run a single-process challenge round")
	keys := flag.String("keys", "provider.json", "provider key file for the demo")
	stake := flag.Uint64("stake", 2000, "stake for generated provider keys")
	loglevel := flag.String("loglevel", "info", "log level")
	flag.Parse()

	level, err := log.ParseLogLevel(*loglevel)
	if err != nil {
		stdlog.Fatal(err)
	}
	log.Init(log.Options{LogLevel: level, Type: log.ConsoleLogger})

	if *keygen != "" {
		info, err := generateKeyInfo(*stake)
		if err != nil {
			stdlog.Fatal(err)
		}
		jsonData, err := json.MarshalIndent(info, "", "	")
		if err != nil {
			stdlog.Fatal(err)
		}
		if err := os.WriteFile(*keygen, jsonData, 0o600); err != nil {
			stdlog.Fatal(err)
		}
		fmt.Printf("wrote provider keys to %s\n", *keygen)
		return
	}

	if !*demo {
		flag.Usage()
		os.Exit(2)
	}

	info, err := loadKeyInfo(*keys)
	if err != nil {
		stdlog.Fatal(err)
	}
	if err := runDemo(info); err != nil {
		stdlog.Fatal(err)
	}
}

// runDemo drives one complete challenge round in-process: commit a file,
// register and assign the provider, schedule an epoch, build the proof
// through the gateway and submit it.
func runDemo(info ProviderKeyInfo) error {
	ctx := context.Background()

	providerKey, err := info.publicKey()
	if err != nil {
		return err
	}

	_, beaconPrv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return err
	}
	vrf := beacon.NewVRFBeacon(beaconPrv)
	vrf.Finalize(1)

	kv, err := pebble.NewKVStore()
	if err != nil {
		return err
	}
	defer kv.Close()

	eng := engine.New(engine.DefaultConfig(), vrf, kv)
	svc := gateway.NewMemoryStore()

	data := make([]byte, 10*commitment.ChunkSize)
	for i := range data {
		data[i] = byte(i)
	}
	fc, err := eng.CommitFile(crypto.HashData([]byte("demo-bucket")), data)
	if err != nil {
		return err
	}
	if err := prover.StoreFile(ctx, svc, fc.FileID, data); err != nil {
		return err
	}

	if err := eng.RegisterProvider(providerKey, info.Stake); err != nil {
		return err
	}
	if err := eng.AssignFile(providerKey, fc.FileID); err != nil {
		return err
	}

	issued, err := eng.ScheduleEpoch(epoch.Epoch(1))
	if err != nil {
		return err
	}
	for _, chal := range issued {
		fmt.Printf("challenge epoch=%d file=%s indices=%v\n", chal.Key.Epoch, chal.Key.FileID, chal.Indices)

		sub, err := prover.BuildSubmission(ctx, svc, chal)
		if err != nil {
			return err
		}
		if err := eng.SubmitProof(sub); err != nil {
			return err
		}
	}

	p, _ := eng.Provider(providerKey)
	fmt.Printf("provider %s reputation=%d stake=%d\n", providerKey, p.Reputation, p.Stake)
	return nil
}
