package transport

import (
	"testing"
	"time"
)

func TestSimRadioDeliversAcrossMedium(t *testing.T) {
	medium := NewMedium(0)
	a := medium.Attach(-60, 40)
	b := medium.Attach(-70, 30)

	if err := a.StartTransmit([]byte("hello")); err != nil {
		t.Fatalf("StartTransmit: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		status, _ := b.IRQStatus()
		if status&IRQRxDone != 0 {
			buf := make([]byte, 32)
			n, _ := b.ReadData(buf)
			if string(buf[:n]) != "hello" {
				t.Fatalf("got %q, want %q", buf[:n], "hello")
			}
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("timed out waiting for delivery")
}

func TestSimRadioRejectsOverlappingTransmit(t *testing.T) {
	medium := NewMedium(0)
	a := medium.Attach(-60, 40)

	if err := a.StartTransmit([]byte("one")); err != nil {
		t.Fatalf("StartTransmit: %v", err)
	}
	if err := a.StartTransmit([]byte("two")); err != ErrTransmitInProgress {
		t.Fatalf("err = %v, want ErrTransmitInProgress", err)
	}
}

func TestSimRadioLossDropsAllFrames(t *testing.T) {
	medium := NewMedium(1)
	a := medium.Attach(-60, 40)
	b := medium.Attach(-70, 30)

	if err := a.StartTransmit([]byte("hello")); err != nil {
		t.Fatalf("StartTransmit: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	status, _ := b.IRQStatus()
	if status&IRQRxDone != 0 {
		t.Fatal("loss probability 1.0 should drop every frame")
	}
}
