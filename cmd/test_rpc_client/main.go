package main

import (
	"context"
	"flag"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/protobuf/types/known/emptypb"

	"github.com/JoeShih716/go-stake-ledger/internal/app/core/engine"
	grpcpool "github.com/JoeShih716/go-stake-ledger/pkg/grpc"
	"github.com/JoeShih716/go-stake-ledger/pkg/logger"
	pb "github.com/JoeShih716/go-stake-ledger/proto"
)

func main() {
	addr := flag.String("addr", "localhost:50051", "gRPC server address")
	totalCount := flag.Int("count", 100000, "number of deposits")
	concurrency := flag.Int("concurrency", 500, "concurrent requests")
	accounts := flag.Int("accounts", 100, "number of distinct depositors")
	amount := flag.Uint64("amount", 10000, "amount per deposit")
	denom := flag.String("denom", engine.DefaultDenom, "pool token denom")
	flag.Parse()

	log := logger.Component(logger.New("info", "text"), "rpc_client")

	pool := grpcpool.NewPool(grpcpool.WithContentSubtype(pb.CodecName))
	defer pool.Close()
	conn, err := pool.GetConnection(*addr)
	if err != nil {
		log.WithError(err).Fatal("did not connect")
	}
	c := pb.NewPoolServiceClient(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	before, err := c.GetPoolTotal(ctx, &emptypb.Empty{})
	if err != nil {
		log.WithError(err).Fatal("pool not reachable")
	}

	var wg sync.WaitGroup
	var ok, rejected, failed atomic.Int64
	sem := make(chan struct{}, *concurrency)
	startTime := time.Now()

	for i := 0; i < *totalCount; i++ {
		sem <- struct{}{}
		wg.Add(1)

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			resp, err := c.Deposit(ctx, &pb.DepositRequest{
				CommandId: uuid.New().String(),
				Sender:    fmt.Sprintf("depositor-%d", idx%*accounts),
				Funds:     []*pb.Coin{{Denom: *denom, Amount: *amount}},
			})
			switch {
			case err != nil:
				failed.Add(1)
				if idx%10000 == 0 {
					log.WithError(err).WithField("idx", idx).Warn("deposit failed")
				}
			case !resp.GetSuccess():
				rejected.Add(1)
				if idx%10000 == 0 {
					log.WithFields(logrus.Fields{
						"idx":  idx,
						"kind": resp.GetErrorKind(),
					}).Warn("deposit rejected")
				}
			default:
				ok.Add(1)
			}
		}(i)
	}
	wg.Wait()
	elapsed := time.Since(startTime)

	after, err := c.GetPoolTotal(context.Background(), &emptypb.Empty{})
	if err != nil {
		log.WithError(err).Fatal("pool not reachable")
	}

	log.WithFields(logrus.Fields{
		"requests":    *totalCount,
		"ok":          ok.Load(),
		"rejected":    rejected.Load(),
		"failed":      failed.Load(),
		"elapsed":     elapsed.String(),
		"tps":         fmt.Sprintf("%.2f", float64(*totalCount)/elapsed.Seconds()),
		"pool_before": before.GetAmount(),
		"pool_after":  after.GetAmount(),
	}).Info("load test finished")

	if expected := before.GetAmount() + uint64(ok.Load())*(*amount); after.GetAmount() != expected {
		log.WithFields(logrus.Fields{
			"expected": expected,
			"actual":   after.GetAmount(),
		}).Error("pool total mismatch")
	}
}
