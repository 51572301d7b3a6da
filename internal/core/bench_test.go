package core

import "testing"

func benchmarkRelay(b *testing.B, payload int) {
	broker := NewBroker(NewConnectionRegistry(DefaultSendBuffer), NewRoomRegistry(), BrokerConfig{}, nil)

	host := broker.Connect()
	guest := broker.Connect()
	<-host.Events
	<-guest.Events
	broker.Dispatch(host, &Command{Kind: CommandAuthenticate, User: User{ID: 1}})
	broker.Dispatch(guest, &Command{Kind: CommandAuthenticate, User: User{ID: 2}})
	broker.Dispatch(host, &Command{Kind: CommandCreateRoom})
	<-host.Events
	code := (<-host.Events).Room
	broker.Dispatch(guest, &Command{Kind: CommandJoinRoom, Room: code})
	for len(guest.Events) > 0 {
		<-guest.Events
	}
	for len(host.Events) > 0 {
		<-host.Events
	}

	content := make([]byte, payload)
	for i := range content {
		content[i] = 'a'
	}
	cmd := &Command{Kind: CommandContentSync, Content: string(content)}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		broker.Dispatch(host, cmd)
		<-guest.Events
	}
}

func BenchmarkRelay_64B(b *testing.B)  { benchmarkRelay(b, 64) }
func BenchmarkRelay_64KB(b *testing.B) { benchmarkRelay(b, 64<<10) }
func BenchmarkRelay_1MB(b *testing.B)  { benchmarkRelay(b, 1<<20) }
